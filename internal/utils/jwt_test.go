package utils

import (
	"testing"

	"nutrivision/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTokenRoundTrip(t *testing.T) {
	subjectID := primitive.NewObjectID().Hex()

	token, err := GenerateToken(subjectID, "Jane Doe", models.KindPatient)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subjectID, claims.SubjectID)
	assert.Equal(t, models.KindPatient, claims.Kind)
	assert.Equal(t, "Jane Doe", claims.Name)
}

func TestProfessionalToken(t *testing.T) {
	subjectID := primitive.NewObjectID().Hex()

	token, err := GenerateToken(subjectID, "Dr. Smith", models.KindProfessional)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.KindProfessional, claims.Kind)
}

func TestOperatorTokenIsolation(t *testing.T) {
	operatorID := primitive.NewObjectID().Hex()

	token, err := GenerateOperatorToken(operatorID, "Ops")
	require.NoError(t, err)

	// Operator tokens validate only against the operator surface
	_, err = ValidateToken(token)
	assert.Error(t, err)

	claims, err := ValidateOperatorToken(token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.SubjectID)
	assert.Equal(t, models.KindOperator, claims.Kind)
}

func TestSubjectTokenRejectedByOperatorSurface(t *testing.T) {
	token, err := GenerateToken(primitive.NewObjectID().Hex(), "Jane", models.KindPatient)
	require.NoError(t, err)

	_, err = ValidateOperatorToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = ValidateToken("")
	assert.Error(t, err)
}
