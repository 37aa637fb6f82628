package utils

import (
	"fmt"
	"time"

	"nutrivision/internal/config"
	"nutrivision/internal/models"

	"github.com/golang-jwt/jwt/v4"
)

// SubjectClaims represents the bearer-token claims shared by all three
// account kinds. Kind is load-bearing: the same token mechanism
// authorizes three different account collections.
type SubjectClaims struct {
	SubjectID string             `json:"subject_id"`
	Kind      models.AccountKind `json:"kind"`
	Name      string             `json:"name,omitempty"`
	jwt.StandardClaims
}

// GenerateToken issues a signed bearer token for a patient or
// professional subject.
func GenerateToken(subjectID, name string, kind models.AccountKind) (string, error) {
	cfg := config.Load()

	claims := SubjectClaims{
		SubjectID: subjectID,
		Kind:      kind,
		Name:      name,
		StandardClaims: jwt.StandardClaims{
			Issuer:    "nutrivision-backend",
			Subject:   subjectID,
			ExpiresAt: time.Now().Add(cfg.Security.JWT.Expiry).Unix(),
			NotBefore: time.Now().Unix(),
			IssuedAt:  time.Now().Unix(),
			Audience:  "nutrivision-app",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Security.JWT.Secret))
}

// GenerateOperatorToken issues a token for operator accounts, signed with
// a separate salt so operator and subject tokens never validate against
// each other's surface.
func GenerateOperatorToken(operatorID, name string) (string, error) {
	cfg := config.Load()

	claims := SubjectClaims{
		SubjectID: operatorID,
		Kind:      models.KindOperator,
		Name:      name,
		StandardClaims: jwt.StandardClaims{
			Issuer:    "nutrivision-backend-operator",
			Subject:   operatorID,
			ExpiresAt: time.Now().Add(cfg.Security.JWT.OperatorExpiry).Unix(),
			NotBefore: time.Now().Unix(),
			IssuedAt:  time.Now().Unix(),
			Audience:  "nutrivision-operator",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Security.JWT.Secret + "_operator"))
}

// ValidateToken validates a patient/professional bearer token.
func ValidateToken(tokenString string) (*SubjectClaims, error) {
	cfg := config.Load()

	token, err := jwt.ParseWithClaims(tokenString, &SubjectClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Security.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SubjectClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Kind != models.KindPatient && claims.Kind != models.KindProfessional {
		return nil, fmt.Errorf("invalid subject kind: %s", claims.Kind)
	}

	return claims, nil
}

// ValidateOperatorToken validates an operator token.
func ValidateOperatorToken(tokenString string) (*SubjectClaims, error) {
	cfg := config.Load()

	token, err := jwt.ParseWithClaims(tokenString, &SubjectClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Security.JWT.Secret + "_operator"), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SubjectClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Kind != models.KindOperator {
		return nil, fmt.Errorf("operator token required")
	}

	return claims, nil
}
