package pages

import "errors"

// Repository errors.
var (
	ErrPageNotFound   = errors.New("status page not found")
	ErrSlugTaken      = errors.New("slug already in use")
	ErrEditTokenTaken = errors.New("edit token already in use")
)

// Validation errors. A call that returns one of these leaves the page unchanged.
var (
	ErrNameRequired           = errors.New("name is required")
	ErrInvalidComponentType   = errors.New("invalid component type")
	ErrInvalidComponentStatus = errors.New("invalid component status")
	ErrComponentLimitReached  = errors.New("component limit reached for free tier, upgrade to pro for unlimited components")
	ErrComponentNotFound      = errors.New("component not found")
	ErrIncidentFieldsRequired = errors.New("incident title and message are required")
	ErrInvalidIncidentStatus  = errors.New("invalid incident status")
	ErrIncidentNotFound       = errors.New("incident not found")
	ErrInvalidEmail           = errors.New("invalid email address")
)

// Authorization errors.
var (
	ErrInvalidEditToken        = errors.New("invalid or missing edit token")
	ErrInvalidUnsubscribeToken = errors.New("invalid unsubscribe token")
)
