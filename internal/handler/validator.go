package handler

import "github.com/iliyamo/ride-accounts/internal/service"

// RequestValidator plugs the service's struct validation into echo's
// c.Validate.  Failures come back as a BadRequest listing every field.
type RequestValidator struct{}

func (RequestValidator) Validate(i any) error { return service.ValidateStruct(i) }
