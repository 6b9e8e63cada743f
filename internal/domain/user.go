package domain

// Profile is the authenticated user's account record as kept in the session
// store. Password material is never held here.
type Profile struct {
	ID        int64  `json:"id" mapstructure:"id"`
	FirstName string `json:"first_name" mapstructure:"firstName"`
	LastName  string `json:"last_name" mapstructure:"lastName"`
	Email     string `json:"email" mapstructure:"email"`
	Phone     string `json:"phone" mapstructure:"phone"`
	Avatar    string `json:"avatar" mapstructure:"avatar"`
	Role      string `json:"role" mapstructure:"role"`
}
