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
)

// AuthService authenticates the three account populations and issues
// bearer tokens.
type AuthService struct {
	db *mongo.Database
}

func NewAuthService(db *mongo.Database) *AuthService {
	return &AuthService{db: db}
}

// LoginResult carries the authenticated subject and its bearer token.
type LoginResult struct {
	Subject models.Subject `json:"subject"`
	Token   string         `json:"token"`
}

// AuthenticatePatient verifies patient credentials. The account must be
// active; credential failures and unknown emails collapse into the same
// error so the endpoint never confirms which emails exist.
func (s *AuthService) AuthenticatePatient(email, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var patient models.Patient
	err := s.db.Collection("patients").FindOne(ctx, bson.M{
		"email": utils.NormalizeEmail(email),
	}).Decode(&patient)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load patient")
	}

	if !utils.CheckPassword(password, patient.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	if !patient.IsActive {
		return nil, apperr.ErrAccountInactive
	}

	token, err := utils.GenerateToken(patient.ID.Hex(), patient.Name, models.KindPatient)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to sign token")
	}

	s.recordLogin(ctx, "patients", patient.ID)

	logger.LogUserAction(patient.ID.Hex(), "login", map[string]interface{}{
		"kind": models.KindPatient,
	})

	return &LoginResult{
		Subject: models.Subject{ID: patient.ID, Kind: models.KindPatient, Name: patient.Name},
		Token:   token,
	}, nil
}

// AuthenticateProfessional verifies professional credentials. Gating is
// ordered: credentials first, then active, then the approval flags, so
// a rejected professional with a wrong password still sees a credential
// error.
func (s *AuthService) AuthenticateProfessional(email, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var professional models.Professional
	err := s.db.Collection("professionals").FindOne(ctx, bson.M{
		"email": utils.NormalizeEmail(email),
	}).Decode(&professional)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load professional")
	}

	if !utils.CheckPassword(password, professional.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	if !professional.IsActive {
		return nil, apperr.ErrAccountInactive
	}
	if professional.IsRejected {
		return nil, apperr.ErrRejected
	}
	if !professional.IsApproved {
		return nil, apperr.ErrPendingApproval
	}

	token, err := utils.GenerateToken(professional.ID.Hex(), professional.Name, models.KindProfessional)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to sign token")
	}

	s.recordLogin(ctx, "professionals", professional.ID)

	logger.LogUserAction(professional.ID.Hex(), "login", map[string]interface{}{
		"kind": models.KindProfessional,
	})

	return &LoginResult{
		Subject: models.Subject{ID: professional.ID, Kind: models.KindProfessional, Name: professional.Name},
		Token:   token,
	}, nil
}

// AuthenticateOperator verifies operator credentials against the
// operators collection and issues a short-lived operator token.
func (s *AuthService) AuthenticateOperator(email, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var operator models.Operator
	err := s.db.Collection("operators").FindOne(ctx, bson.M{
		"email": utils.NormalizeEmail(email),
	}).Decode(&operator)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load operator")
	}

	if !utils.CheckPassword(password, operator.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	if !operator.IsActive {
		return nil, apperr.ErrAccountInactive
	}

	token, err := utils.GenerateOperatorToken(operator.ID.Hex(), operator.Name)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to sign token")
	}

	s.recordLogin(ctx, "operators", operator.ID)

	logger.LogUserAction(operator.ID.Hex(), "login", map[string]interface{}{
		"kind": models.KindOperator,
	})

	return &LoginResult{
		Subject: models.Subject{ID: operator.ID, Kind: models.KindOperator, Name: operator.Name},
		Token:   token,
	}, nil
}

// ResolveSubject re-checks that a token's subject still exists and is
// still allowed in. Tokens outlive account state changes, so every
// authenticated request revalidates the account.
func (s *AuthService) ResolveSubject(claims *utils.SubjectClaims) (*models.Subject, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(claims.SubjectID)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	switch claims.Kind {
	case models.KindPatient:
		var patient models.Patient
		err := s.db.Collection("patients").FindOne(ctx, bson.M{
			"_id":       id,
			"is_active": true,
		}).Decode(&patient)
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrSubjectNotFound
		}
		if err != nil {
			return nil, apperr.Wrap(err, "failed to load patient")
		}
		return &models.Subject{ID: patient.ID, Kind: models.KindPatient, Name: patient.Name}, nil

	case models.KindProfessional:
		var professional models.Professional
		err := s.db.Collection("professionals").FindOne(ctx, bson.M{
			"_id":       id,
			"is_active": true,
		}).Decode(&professional)
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrSubjectNotFound
		}
		if err != nil {
			return nil, apperr.Wrap(err, "failed to load professional")
		}
		if !professional.CanPractice() {
			return nil, apperr.ErrSubjectNotFound
		}
		return &models.Subject{ID: professional.ID, Kind: models.KindProfessional, Name: professional.Name}, nil

	case models.KindOperator:
		var operator models.Operator
		err := s.db.Collection("operators").FindOne(ctx, bson.M{
			"_id":       id,
			"is_active": true,
		}).Decode(&operator)
		if err == mongo.ErrNoDocuments {
			return nil, apperr.ErrSubjectNotFound
		}
		if err != nil {
			return nil, apperr.Wrap(err, "failed to load operator")
		}
		return &models.Subject{ID: operator.ID, Kind: models.KindOperator, Name: operator.Name}, nil
	}

	return nil, apperr.ErrInvalidToken
}

func (s *AuthService) recordLogin(ctx context.Context, collection string, id primitive.ObjectID) {
	now := time.Now()
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	if err != nil {
		logger.WithError(err).Warn("Failed to record login time")
	}
}
