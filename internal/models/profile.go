package models

import "time"

// Profile is user-editable identity data stored in Mongo and keyed by the
// auth provider's UID. Username is set once and then immutable; it appears in
// public seller URLs.
type Profile struct {
	UserID      string `json:"user_id" bson:"user_id"`
	Username    string `json:"username" bson:"username,omitempty"`
	Email       string `json:"email" bson:"email,omitempty"`
	DisplayName string `json:"display_name" bson:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url" bson:"photo_url,omitempty"`
	Bio         string `json:"bio" bson:"bio,omitempty"`
	Location    string `json:"location" bson:"location,omitempty"`
	Website     string `json:"website" bson:"website,omitempty"`

	// Contact channels shown to buyers.
	Phone         string `json:"phone" bson:"phone,omitempty"`
	PhoneVerified bool   `json:"phone_verified" bson:"phone_verified"`
	WhatsApp      string `json:"whatsapp" bson:"whatsapp,omitempty"`
	Messenger     string `json:"messenger" bson:"messenger,omitempty"`
	Facebook      string `json:"facebook" bson:"facebook,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// PublicProfile is safe to share with any visitor: no email, phone only once
// verified.
type PublicProfile struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	Bio         string `json:"bio"`
	Location    string `json:"location"`
	Website     string `json:"website"`
	Phone       string `json:"phone,omitempty"`
	WhatsApp    string `json:"whatsapp,omitempty"`
	Messenger   string `json:"messenger,omitempty"`
	Facebook    string `json:"facebook,omitempty"`
}

// Public projects the sharable view.
func (p *Profile) Public() PublicProfile {
	pub := PublicProfile{
		Username:    p.Username,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
		Bio:         p.Bio,
		Location:    p.Location,
		Website:     p.Website,
		WhatsApp:    p.WhatsApp,
		Messenger:   p.Messenger,
		Facebook:    p.Facebook,
	}
	if p.PhoneVerified {
		pub.Phone = p.Phone
	}
	return pub
}

type UpsertProfileRequest struct {
	// Username may be set only while the profile has none; later changes are
	// rejected.
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	Website     *string `json:"website"`
	Phone       *string `json:"phone"`
	WhatsApp    *string `json:"whatsapp"`
	Messenger   *string `json:"messenger"`
	Facebook    *string `json:"facebook"`
}

func (r *UpsertProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Username != nil {
		u := trimmed(*r.Username)
		if len(u) < 3 {
			errors["username"] = "Username must be at least 3 characters"
		} else if len(u) > 30 {
			errors["username"] = "Username is too long"
		} else if !validUsername(u) {
			errors["username"] = "Username may contain only lowercase letters, digits and underscores"
		}
	}
	if r.DisplayName != nil && len(*r.DisplayName) > 80 {
		errors["display_name"] = "Display name is too long"
	}
	if r.Bio != nil && len(*r.Bio) > 1000 {
		errors["bio"] = "Bio is too long"
	}

	return errors
}

func validUsername(u string) bool {
	for _, c := range u {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
