package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nhangara/identity-server/internal/model"
)

func TestManager_SetAndGetUser(t *testing.T) {
	m := NewManager()
	user := model.User{ID: uuid.New(), ExternalID: "saci@example.com", Name: "Saci", IsActive: true}

	ctx := m.SetUserToContext(context.Background(), user)

	got, ok := m.GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, user, got)
}

func TestManager_GetUser_Missing(t *testing.T) {
	m := NewManager()

	got, ok := m.GetUserFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, model.User{}, got)
}

func TestManager_SetUser_Overrides(t *testing.T) {
	m := NewManager()
	first := model.User{ID: uuid.New(), Name: "Boto"}
	second := model.User{ID: uuid.New(), Name: "Iara"}

	ctx := m.SetUserToContext(context.Background(), first)
	ctx = m.SetUserToContext(ctx, second)

	got, ok := m.GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
}
