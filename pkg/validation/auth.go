package validation

// AuthRequestValidator validates authentication-related requests
type AuthRequestValidator struct {
	v *Validator
}

// NewAuthRequestValidator creates a new AuthRequestValidator
func NewAuthRequestValidator() *AuthRequestValidator {
	return &AuthRequestValidator{v: New()}
}

// ValidateLoginRequest validates a login request
func (a *AuthRequestValidator) ValidateLoginRequest(req LoginRequest) error {
	return a.v.Struct(req)
}

// ValidateRegisterRequest validates a registration request
func (a *AuthRequestValidator) ValidateRegisterRequest(req RegisterRequest) error {
	return a.v.Struct(req)
}
