package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/ride-accounts/internal/model"
)

// emailPattern accepts something@something.something.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	// bcrypt rejects input longer than 72 bytes; max counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	_ = v.RegisterValidation("vehicletype", func(fl validator.FieldLevel) bool {
		return model.VehicleType(fl.Field().String()).Valid()
	})
	return v
}

// FullNameInput is the fullname object of register and update requests.
type FullNameInput struct {
	FirstName string `json:"firstname" validate:"required,min=3,max=100"`
	LastName  string `json:"lastname" validate:"required,min=3,max=100"`
}

// VehicleInput is the captain vehicle object.
type VehicleInput struct {
	Color       string            `json:"color" validate:"required,min=3,max=50"`
	Plate       string            `json:"plate" validate:"required,min=3,max=50"`
	Capacity    int               `json:"capacity" validate:"required,min=1"`
	VehicleType model.VehicleType `json:"vehicleType" validate:"required,vehicletype"`
}

// RegisterInput is the body of POST /register.  Username is only read for
// users, Vehicle only for captains.
type RegisterInput struct {
	FullName FullNameInput `json:"fullname"`
	Email    string        `json:"email" validate:"required,emailaddr,max=255"`
	Password string        `json:"password" validate:"required,min=6,max=72,maxbytes=72"`
	Username string        `json:"username" validate:"omitempty,min=3,max=64"`
	Vehicle  *VehicleInput `json:"vehicle"`
}

// LoginInput is the body of POST /login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordInput is the body of POST /change-password.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72,maxbytes=72,nefield=OldPassword"`
}

// UpdateProfileInput is the body of PATCH /update-account.  An empty
// username or a nil vehicle keeps the stored value.
type UpdateProfileInput struct {
	FullName FullNameInput `json:"fullname"`
	Email    string        `json:"email" validate:"required,emailaddr,max=255"`
	Username string        `json:"username" validate:"omitempty,min=3,max=64"`
	Vehicle  *VehicleInput `json:"vehicle"`
}

func (in *FullNameInput) trim() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
}

func (in *VehicleInput) trim() {
	if in == nil {
		return
	}
	in.Color = strings.TrimSpace(in.Color)
	in.Plate = strings.TrimSpace(in.Plate)
	in.VehicleType = model.VehicleType(strings.ToLower(strings.TrimSpace(string(in.VehicleType))))
}

func (in *VehicleInput) toModel() *model.Vehicle {
	if in == nil {
		return nil
	}
	return &model.Vehicle{Color: in.Color, Plate: in.Plate, Capacity: in.Capacity, VehicleType: in.VehicleType}
}

// Passwords are never trimmed.
func (in *RegisterInput) trim() {
	in.FullName.trim()
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Vehicle.trim()
}

func (in *UpdateProfileInput) trim() {
	in.FullName.trim()
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Vehicle.trim()
}

// ValidateStruct runs the struct tags of s and returns a BadRequest error
// listing every failed field, or nil.
func ValidateStruct(s any) error {
	return toBadRequest(validate.Struct(s))
}

// validateFor adds the role specific rules on top of the struct tags.
// Fields that do not belong to the role are ignored.
func validateFor(desc model.RoleDescriptor, s any, username string, vehicle *VehicleInput, creating bool) error {
	var msgs []string
	if err := validate.Struct(s); err != nil {
		be := toBadRequest(err)
		var se *Error
		if !errors.As(be, &se) {
			return be
		}
		msgs = append(msgs, se.Errors...)
	}
	if creating && desc.RequiresUsername && username == "" {
		msgs = append(msgs, "username is required")
	}
	if creating && desc.RequiresVehicle && vehicle == nil {
		msgs = append(msgs, "vehicle is required")
	}
	if len(msgs) > 0 {
		return BadRequest("validation failed", msgs...)
	}
	return nil
}

func toBadRequest(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest("invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return BadRequest("validation failed", msgs...)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if isString {
			return fmt.Sprintf("%s should be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s should be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s should be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s should be at most %s", field, fe.Param())
	case "emailaddr":
		return field + " is not a valid email address"
	case "maxbytes":
		return fmt.Sprintf("%s should be at most %s bytes", field, fe.Param())
	case "vehicletype":
		return fmt.Sprintf("%s should be one of [%s %s %s]", field, model.VehicleCar, model.VehicleMoto, model.VehicleAuto)
	case "nefield":
		return field + " should differ from the old password"
	}
	return field + " is invalid"
}
