package jobstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svasr/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := Open(path)
	require.NoError(t, err)
	return store
}

func TestCreate_StartsPendingWithInitStep(t *testing.T) {
	store := openTestStore(t)
	id, err := store.Create(`{"segments":[]}`)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := store.Get(id)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, string(model.JobPending), job.Status)
	assert.Equal(t, model.StepInit, job.CurrentStep)
}

func TestGet_UnknownIDReturnsNilNoError(t *testing.T) {
	store := openTestStore(t)
	job, err := store.Get("does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, job)
}

func TestUpdate_OnlySetsProvidedFields(t *testing.T) {
	store := openTestStore(t)
	id, err := store.Create(`{}`)
	require.NoError(t, err)

	require.NoError(t, store.SetStatus(id, string(model.JobRunning)))
	job, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, string(model.JobRunning), job.Status)
	assert.Equal(t, model.StepInit, job.CurrentStep) // untouched

	require.NoError(t, store.SetStep(id, model.StepRetry))
	job, err = store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.StepRetry, job.CurrentStep)
	assert.Equal(t, string(model.JobRunning), job.Status) // untouched
}

func TestUpdate_ResultDataAndError(t *testing.T) {
	store := openTestStore(t)
	id, err := store.Create(`{}`)
	require.NoError(t, err)

	resultData := `{"segments":[]}`
	errMsg := "boom"
	require.NoError(t, store.Update(id, Update{ResultData: &resultData, Error: &errMsg}))

	job, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, resultData, job.ResultData)
	assert.Equal(t, errMsg, job.Error)
}
