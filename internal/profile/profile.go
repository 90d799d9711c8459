package profile

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrAlreadyExists  = errors.New("profile already exists")
	ErrInvalidProfile = errors.New("invalid profile")
)

type Role string

const (
	RoleChef   Role = "chef"
	RoleClient Role = "client"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleChef, RoleClient:
		return r, true
	}
	return "", false
}

// Profile is a chef or client user. Both roles share one superset of
// optional fields; which ones matter depends on Role.
type Profile struct {
	ID               string `json:"id"`
	Role             Role   `json:"role"`
	DisplayName      string `json:"display_name,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Location         string `json:"location,omitempty"`
	Dob              string `json:"dob,omitempty"`
	Bio              string `json:"bio,omitempty"`
	ProfileImagePath string `json:"profile_image_path,omitempty"`

	// chef
	Experience     string   `json:"experience,omitempty"`
	Specialties    []string `json:"specialties"`
	HourlyRate     float64  `json:"hourly_rate,omitempty"`
	Certifications string   `json:"certifications,omitempty"`
	Availability   string   `json:"availability,omitempty"`

	// client
	DietaryPreferences string `json:"dietary_preferences,omitempty"`
	FavoriteCuisines   string `json:"favorite_cuisines,omitempty"`
	Allergies          string `json:"allergies,omitempty"`
	CookingSkillLevel  string `json:"cooking_skill_level,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
}

// Label is the human facing name: display name, then first and last
// name, then email, then "User".
func (p Profile) Label() string {
	if s := strings.TrimSpace(p.DisplayName); s != "" {
		return s
	}
	if s := strings.TrimSpace(p.FirstName + " " + p.LastName); s != "" {
		return s
	}
	if p.Email != "" {
		return p.Email
	}
	return "User"
}

// Patch is a partial profile. Nil fields are left untouched. ID, Role and
// CreatedAt cannot be patched.
type Patch struct {
	DisplayName      *string `json:"display_name,omitempty"`
	FirstName        *string `json:"first_name,omitempty"`
	LastName         *string `json:"last_name,omitempty"`
	Email            *string `json:"email,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Location         *string `json:"location,omitempty"`
	Dob              *string `json:"dob,omitempty"`
	Bio              *string `json:"bio,omitempty"`
	ProfileImagePath *string `json:"profile_image_path,omitempty"`

	Experience     *string   `json:"experience,omitempty"`
	Specialties    *[]string `json:"specialties"`
	HourlyRate     *float64  `json:"hourly_rate,omitempty"`
	Certifications *string   `json:"certifications,omitempty"`
	Availability   *string   `json:"availability,omitempty"`

	DietaryPreferences *string `json:"dietary_preferences,omitempty"`
	FavoriteCuisines   *string `json:"favorite_cuisines,omitempty"`
	Allergies          *string `json:"allergies,omitempty"`
	CookingSkillLevel  *string `json:"cooking_skill_level,omitempty"`
}

// Apply shallow-merges the patch onto p and returns the result.
func (pt Patch) Apply(p Profile) Profile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.DisplayName, pt.DisplayName)
	set(&p.FirstName, pt.FirstName)
	set(&p.LastName, pt.LastName)
	set(&p.Email, pt.Email)
	set(&p.Phone, pt.Phone)
	set(&p.Location, pt.Location)
	set(&p.Dob, pt.Dob)
	set(&p.Bio, pt.Bio)
	set(&p.ProfileImagePath, pt.ProfileImagePath)
	set(&p.Experience, pt.Experience)
	set(&p.Certifications, pt.Certifications)
	set(&p.Availability, pt.Availability)
	set(&p.DietaryPreferences, pt.DietaryPreferences)
	set(&p.FavoriteCuisines, pt.FavoriteCuisines)
	set(&p.Allergies, pt.Allergies)
	set(&p.CookingSkillLevel, pt.CookingSkillLevel)
	if pt.Specialties != nil {
		p.Specialties = cloneStrings(*pt.Specialties)
	}
	if pt.HourlyRate != nil {
		p.HourlyRate = *pt.HourlyRate
	}
	return p
}

func (pt Patch) Validate() error {
	if pt.Dob != nil && *pt.Dob != "" {
		if _, err := time.Parse("2006-01-02", *pt.Dob); err != nil {
			return errors.Join(ErrInvalidProfile, errors.New("dob must be YYYY-MM-DD"))
		}
	}
	if pt.HourlyRate != nil && *pt.HourlyRate < 0 {
		return errors.Join(ErrInvalidProfile, errors.New("hourly_rate must not be negative"))
	}
	return nil
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

// PatchOf returns a patch that sets every mutable field to its value in p.
func PatchOf(p Profile) Patch {
	specialties := cloneStrings(p.Specialties)
	rate := p.HourlyRate
	return Patch{
		DisplayName:        String(p.DisplayName),
		FirstName:          String(p.FirstName),
		LastName:           String(p.LastName),
		Email:              String(p.Email),
		Phone:              String(p.Phone),
		Location:           String(p.Location),
		Dob:                String(p.Dob),
		Bio:                String(p.Bio),
		ProfileImagePath:   String(p.ProfileImagePath),
		Experience:         String(p.Experience),
		Specialties:        &specialties,
		HourlyRate:         &rate,
		Certifications:     String(p.Certifications),
		Availability:       String(p.Availability),
		DietaryPreferences: String(p.DietaryPreferences),
		FavoriteCuisines:   String(p.FavoriteCuisines),
		Allergies:          String(p.Allergies),
		CookingSkillLevel:  String(p.CookingSkillLevel),
	}
}

// cloneStrings copies s, keeping nil and empty distinct.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
