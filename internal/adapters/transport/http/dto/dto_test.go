package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/domain/user/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestProfileUpdateDTO_TracksPresence(t *testing.T) {
	var in ProfileUpdateDTO
	require.NoError(t, json.Unmarshal([]byte(`{"phone":"+1","date_of_birth":null}`), &in))

	require.True(t, in.Phone.Set)
	require.Equal(t, "+1", *in.Phone.Value)
	require.False(t, in.Address.Set)
	require.True(t, in.DateOfBirth.Set)
	require.Nil(t, in.DateOfBirth.Value)
}

func TestProfileUpdateDTO_RejectsNonString(t *testing.T) {
	var in ProfileUpdateDTO
	require.Error(t, json.Unmarshal([]byte(`{"phone":123}`), &in))
}

func TestNewUserProfileResponse_WithoutProfile(t *testing.T) {
	resp := NewUserProfileResponse(model.UserWithProfile{
		User: model.User{ID: uuid.New(), Email: "a@example.com", Username: "a"},
	})
	require.Equal(t, "a@example.com", resp.Email)
	require.Equal(t, "", resp.Profile.Phone)
	require.Nil(t, resp.Profile.DateOfBirth)
	require.Nil(t, resp.Profile.CreatedAt)
}

func TestNewProfileResponse_FormatsDate(t *testing.T) {
	dob := time.Date(1985, 5, 15, 0, 0, 0, 0, time.UTC)
	resp := NewProfileResponse(&model.Profile{Phone: "+1", DateOfBirth: &dob})
	require.Equal(t, "1985-05-15", *resp.DateOfBirth)
}
