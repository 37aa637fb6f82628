package services

import (
	"context"
	"time"

	"nutrivision/internal/apperr"
	"nutrivision/internal/models"
	"nutrivision/internal/utils"
	"nutrivision/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AccountService manages the patient and professional account
// collections plus operator moderation of professional applications.
type AccountService struct {
	db *mongo.Database
}

func NewAccountService(db *mongo.Database) *AccountService {
	return &AccountService{db: db}
}

// PatientRegistration is the input for patient sign-up.
type PatientRegistration struct {
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	Password string               `json:"password"`
	Profile  models.HealthProfile `json:"profile"`
}

// ProfessionalRegistration is the input for professional sign-up. The
// account starts unapproved and cannot log in until an operator decides.
type ProfessionalRegistration struct {
	Name             string                    `json:"name"`
	Email            string                    `json:"email"`
	Password         string                    `json:"password"`
	Phone            string                    `json:"phone"`
	Professional     models.ProfessionalInfo   `json:"professional"`
	Availability     models.WeeklyAvailability `json:"availability"`
	ConsultationRate float64                   `json:"consultation_rate"`
}

// RegisterPatient creates a patient account and logs it straight in.
func (s *AccountService) RegisterPatient(reg PatientRegistration) (*LoginResult, error) {
	if err := validateRegistration(reg.Name, reg.Email, reg.Password); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(reg.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to hash password")
	}

	now := time.Now()
	patient := models.Patient{
		ID:           primitive.NewObjectID(),
		Name:         reg.Name,
		Email:        utils.NormalizeEmail(reg.Email),
		PasswordHash: hash,
		Profile:      reg.Profile,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.Collection("patients").InsertOne(ctx, patient)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.New(apperr.Conflict, "EMAIL_TAKEN", "An account with this email already exists")
		}
		return nil, apperr.Wrap(err, "failed to create patient")
	}

	token, err := utils.GenerateToken(patient.ID.Hex(), patient.Name, models.KindPatient)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to sign token")
	}

	logger.LogUserAction(patient.ID.Hex(), "register", map[string]interface{}{
		"kind": models.KindPatient,
	})

	return &LoginResult{
		Subject: models.Subject{ID: patient.ID, Kind: models.KindPatient, Name: patient.Name},
		Token:   token,
	}, nil
}

// RegisterProfessional creates a professional application pending
// operator review. No token is issued; login stays blocked until the
// application is approved.
func (s *AccountService) RegisterProfessional(reg ProfessionalRegistration) (*models.Professional, error) {
	if err := validateRegistration(reg.Name, reg.Email, reg.Password); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(reg.Password)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to hash password")
	}

	now := time.Now()
	professional := models.Professional{
		ID:               primitive.NewObjectID(),
		Name:             reg.Name,
		Email:            utils.NormalizeEmail(reg.Email),
		PasswordHash:     hash,
		Phone:            reg.Phone,
		Professional:     reg.Professional,
		Availability:     reg.Availability,
		ConsultationRate: reg.ConsultationRate,
		IsActive:         true,
		IsApproved:       false,
		IsRejected:       false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = s.db.Collection("professionals").InsertOne(ctx, professional)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.New(apperr.Conflict, "EMAIL_TAKEN", "An account with this email already exists")
		}
		return nil, apperr.Wrap(err, "failed to create professional")
	}

	logger.LogUserAction(professional.ID.Hex(), "register", map[string]interface{}{
		"kind": models.KindProfessional,
	})

	return &professional, nil
}

// GetPatient loads one patient by ID.
func (s *AccountService) GetPatient(id primitive.ObjectID) (*models.Patient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var patient models.Patient
	err := s.db.Collection("patients").FindOne(ctx, bson.M{"_id": id}).Decode(&patient)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrSubjectNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load patient")
	}
	return &patient, nil
}

// GetProfessional loads one professional by ID.
func (s *AccountService) GetProfessional(id primitive.ObjectID) (*models.Professional, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var professional models.Professional
	err := s.db.Collection("professionals").FindOne(ctx, bson.M{"_id": id}).Decode(&professional)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrSubjectNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load professional")
	}
	return &professional, nil
}

// ListProfessionals returns bookable professionals, optionally filtered
// by specialization. Only active, approved accounts appear.
func (s *AccountService) ListProfessionals(specialization string, page, limit int) ([]models.Professional, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{
		"is_active":   true,
		"is_approved": true,
		"is_rejected": false,
	}
	if specialization != "" {
		filter["professional.specializations"] = specialization
	}

	collection := s.db.Collection("professionals")

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to count professionals")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to list professionals")
	}
	defer cursor.Close(ctx)

	professionals := make([]models.Professional, 0)
	if err := cursor.All(ctx, &professionals); err != nil {
		return nil, 0, apperr.Wrap(err, "failed to decode professionals")
	}

	return professionals, total, nil
}

// UpdatePatientProfile replaces the patient's health profile and name.
func (s *AccountService) UpdatePatientProfile(id primitive.ObjectID, name string, profile models.HealthProfile) (*models.Patient, error) {
	if name != "" && !utils.ValidateName(name) {
		return nil, apperr.New(apperr.Validation, "INVALID_NAME", "Name must be between 2 and 50 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"profile":    profile,
		"updated_at": time.Now(),
	}
	if name != "" {
		update["name"] = name
	}

	var patient models.Patient
	err := s.db.Collection("patients").FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&patient)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrSubjectNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to update patient")
	}

	return &patient, nil
}

// ProfessionalProfileUpdate is the mutable slice of a professional
// account. Approval flags are operator-only and absent here.
type ProfessionalProfileUpdate struct {
	Name             string                     `json:"name"`
	Phone            string                     `json:"phone"`
	Professional     *models.ProfessionalInfo   `json:"professional"`
	Availability     *models.WeeklyAvailability `json:"availability"`
	ConsultationRate *float64                   `json:"consultation_rate"`
}

// UpdateProfessionalProfile applies the given profile changes.
func (s *AccountService) UpdateProfessionalProfile(id primitive.ObjectID, upd ProfessionalProfileUpdate) (*models.Professional, error) {
	if upd.Name != "" && !utils.ValidateName(upd.Name) {
		return nil, apperr.New(apperr.Validation, "INVALID_NAME", "Name must be between 2 and 50 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{"updated_at": time.Now()}
	if upd.Name != "" {
		update["name"] = upd.Name
	}
	if upd.Phone != "" {
		update["phone"] = upd.Phone
	}
	if upd.Professional != nil {
		update["professional"] = *upd.Professional
	}
	if upd.Availability != nil {
		update["availability"] = *upd.Availability
	}
	if upd.ConsultationRate != nil {
		update["consultation_rate"] = *upd.ConsultationRate
	}

	var professional models.Professional
	err := s.db.Collection("professionals").FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&professional)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrSubjectNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to update professional")
	}

	return &professional, nil
}

// ChangePassword rehashes only after the current password checks out.
func (s *AccountService) ChangePassword(kind models.AccountKind, id primitive.ObjectID, current, next string) error {
	if !utils.ValidatePassword(next) {
		return apperr.New(apperr.Validation, "WEAK_PASSWORD", "Password must be at least 6 characters")
	}

	collection := collectionForKind(kind)
	if collection == "" {
		return apperr.ErrAccessDenied
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var account struct {
		PasswordHash string `bson:"password"`
	}
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return apperr.ErrSubjectNotFound
	}
	if err != nil {
		return apperr.Wrap(err, "failed to load account")
	}

	if !utils.CheckPassword(current, account.PasswordHash) {
		return apperr.New(apperr.Unauthorized, "WRONG_PASSWORD", "Current password is incorrect")
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return apperr.Wrap(err, "failed to hash password")
	}

	_, err = s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now()}},
	)
	if err != nil {
		return apperr.Wrap(err, "failed to update password")
	}

	logger.LogUserAction(id.Hex(), "password_changed", map[string]interface{}{
		"kind": kind,
	})

	return nil
}

// Deactivate soft-disables an account. The record and its history stay;
// the account just stops authenticating.
func (s *AccountService) Deactivate(kind models.AccountKind, id primitive.ObjectID) error {
	collection := collectionForKind(kind)
	if collection == "" {
		return apperr.ErrAccessDenied
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return apperr.Wrap(err, "failed to deactivate account")
	}
	if result.MatchedCount == 0 {
		return apperr.ErrSubjectNotFound
	}

	logger.LogUserAction(id.Hex(), "deactivated", map[string]interface{}{
		"kind": kind,
	})

	return nil
}

// Operator moderation of professional applications

// ListPendingProfessionals returns applications awaiting review.
func (s *AccountService) ListPendingProfessionals(page, limit int) ([]models.Professional, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{
		"is_active":   true,
		"is_approved": false,
		"is_rejected": false,
	}

	collection := s.db.Collection("professionals")

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to count applications")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "failed to list applications")
	}
	defer cursor.Close(ctx)

	professionals := make([]models.Professional, 0)
	if err := cursor.All(ctx, &professionals); err != nil {
		return nil, 0, apperr.Wrap(err, "failed to decode applications")
	}

	return professionals, total, nil
}

// ApproveProfessional marks an application approved. The conditional
// filter makes the decision first-writer-wins: a second decision finds
// no pending application and reports not found.
func (s *AccountService) ApproveProfessional(operatorID, professionalID primitive.ObjectID) (*models.Professional, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	var professional models.Professional
	err := s.db.Collection("professionals").FindOneAndUpdate(ctx,
		bson.M{
			"_id":         professionalID,
			"is_approved": false,
			"is_rejected": false,
		},
		bson.M{"$set": bson.M{
			"is_approved": true,
			"approved_by": operatorID,
			"approved_at": now,
			"updated_at":  now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&professional)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "APPLICATION_NOT_FOUND", "Application not found or already decided")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to approve professional")
	}

	logger.LogUserAction(operatorID.Hex(), "professional_approved", map[string]interface{}{
		"professional_id": professionalID.Hex(),
	})

	return &professional, nil
}

// RejectProfessional marks an application rejected with a reason.
func (s *AccountService) RejectProfessional(operatorID, professionalID primitive.ObjectID, reason string) (*models.Professional, error) {
	if !utils.ValidateRejectionReason(reason) {
		return nil, apperr.New(apperr.Validation, "INVALID_REASON", "Rejection reason must be at least 5 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	var professional models.Professional
	err := s.db.Collection("professionals").FindOneAndUpdate(ctx,
		bson.M{
			"_id":         professionalID,
			"is_approved": false,
			"is_rejected": false,
		},
		bson.M{"$set": bson.M{
			"is_rejected":      true,
			"rejected_at":      now,
			"rejection_reason": reason,
			"updated_at":       now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&professional)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "APPLICATION_NOT_FOUND", "Application not found or already decided")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to reject professional")
	}

	logger.LogUserAction(operatorID.Hex(), "professional_rejected", map[string]interface{}{
		"professional_id": professionalID.Hex(),
	})

	return &professional, nil
}

func validateRegistration(name, email, password string) error {
	if !utils.ValidateName(name) {
		return apperr.New(apperr.Validation, "INVALID_NAME", "Name must be between 2 and 50 characters")
	}
	if !utils.ValidateEmail(email) {
		return apperr.New(apperr.Validation, "INVALID_EMAIL", "A valid email address is required")
	}
	if !utils.ValidatePassword(password) {
		return apperr.New(apperr.Validation, "WEAK_PASSWORD", "Password must be at least 6 characters")
	}
	return nil
}

func collectionForKind(kind models.AccountKind) string {
	switch kind {
	case models.KindPatient:
		return "patients"
	case models.KindProfessional:
		return "professionals"
	case models.KindOperator:
		return "operators"
	}
	return ""
}
