package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountKind discriminates the two account collections that share the
// credential/activity shape. Operator is issued tokens but lives outside
// the patient/professional collections.
type AccountKind string

const (
	KindPatient      AccountKind = "patient"
	KindProfessional AccountKind = "professional"
	KindOperator     AccountKind = "operator"
)

// Patient is a registered patient account.
type Patient struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Profile      HealthProfile      `bson:"profile" json:"profile"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// HealthProfile carries the patient-side profile data.
type HealthProfile struct {
	Age                 int      `bson:"age,omitempty" json:"age,omitempty"`
	Gender              string   `bson:"gender,omitempty" json:"gender,omitempty"`
	HeightCM            float64  `bson:"height_cm,omitempty" json:"height_cm,omitempty"`
	WeightKG            float64  `bson:"weight_kg,omitempty" json:"weight_kg,omitempty"`
	ActivityLevel       string   `bson:"activity_level,omitempty" json:"activity_level,omitempty"`
	DietaryRestrictions []string `bson:"dietary_restrictions,omitempty" json:"dietary_restrictions,omitempty"`
	Allergies           []string `bson:"allergies,omitempty" json:"allergies,omitempty"`
}

// Professional is a nutrition professional account. Booking and login are
// gated on IsActive plus the admin-set approval flags.
type Professional struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Phone        string             `bson:"phone" json:"phone"`
	Professional ProfessionalInfo   `bson:"professional" json:"professional"`
	Availability WeeklyAvailability `bson:"availability" json:"availability"`

	ConsultationRate float64 `bson:"consultation_rate" json:"consultation_rate"`
	Rating           float64 `bson:"rating" json:"rating"`
	ReviewCount      int     `bson:"review_count" json:"review_count"`

	IsActive bool `bson:"is_active" json:"is_active"`

	// Admin approval flags, mutually exclusive.
	IsApproved      bool                `bson:"is_approved" json:"is_approved"`
	IsRejected      bool                `bson:"is_rejected" json:"is_rejected"`
	ApprovedBy      *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	RejectedAt      *time.Time          `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	LastLogin *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// ProfessionalInfo holds qualification data collected at registration.
type ProfessionalInfo struct {
	Qualification   string   `bson:"qualification" json:"qualification"`
	Certification   string   `bson:"certification,omitempty" json:"certification,omitempty"`
	License         string   `bson:"license,omitempty" json:"license,omitempty"`
	ExperienceYears int      `bson:"experience_years" json:"experience_years"`
	Specializations []string `bson:"specializations" json:"specializations"`
	Bio             string   `bson:"bio,omitempty" json:"bio,omitempty"`
}

// DaySlot is an availability window for one weekday.
type DaySlot struct {
	Start     string `bson:"start,omitempty" json:"start,omitempty"`
	End       string `bson:"end,omitempty" json:"end,omitempty"`
	Available bool   `bson:"available" json:"available"`
}

type WeeklyAvailability struct {
	Monday    DaySlot `bson:"monday" json:"monday"`
	Tuesday   DaySlot `bson:"tuesday" json:"tuesday"`
	Wednesday DaySlot `bson:"wednesday" json:"wednesday"`
	Thursday  DaySlot `bson:"thursday" json:"thursday"`
	Friday    DaySlot `bson:"friday" json:"friday"`
	Saturday  DaySlot `bson:"saturday" json:"saturday"`
	Sunday    DaySlot `bson:"sunday" json:"sunday"`
}

// Operator is a back-office account. Operators review professional
// applications and moderate appointments; they are never a party to one.
type Operator struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Subject is the tagged account view shared by operations that accept
// either account kind. Handlers pattern-match on Kind, never on structure.
type Subject struct {
	ID   primitive.ObjectID `json:"id"`
	Kind AccountKind        `json:"kind"`
	Name string             `json:"name"`
}

// CanPractice reports whether a professional may be booked or may log in:
// active and admin-approved.
func (p *Professional) CanPractice() bool {
	return p.IsActive && p.IsApproved && !p.IsRejected
}
