package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/loginscraper/internal/domain"
)

func TestJobRegistry_CreateAndGet(t *testing.T) {
	reg := NewJobRegistry()

	job, err := reg.Create("job_1", "https://example.com/login")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)

	got, err := reg.Get("job_1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/login", got.URL)
	assert.Equal(t, 1, reg.Len())
}

func TestJobRegistry_GetUnknown(t *testing.T) {
	reg := NewJobRegistry()

	_, err := reg.Get("does-not-exist")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = reg.Update("does-not-exist", domain.ToRunning())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobRegistry_DuplicateLeavesOriginal(t *testing.T) {
	reg := NewJobRegistry()

	_, err := reg.Create("job_1", "https://a.example")
	require.NoError(t, err)
	_, err = reg.Update("job_1", domain.ToRunning())
	require.NoError(t, err)

	_, err = reg.Create("job_1", "https://b.example")
	require.ErrorIs(t, err, domain.ErrDuplicateJob)

	got, err := reg.Get("job_1")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", got.URL)
	assert.Equal(t, domain.JobStatusRunning, got.Status)
}

func TestJobRegistry_LifecycleCompleted(t *testing.T) {
	reg := NewJobRegistry()
	_, err := reg.Create("job_1", "https://example.com")
	require.NoError(t, err)

	running, err := reg.Update("job_1", domain.ToRunning())
	require.NoError(t, err)
	require.NotNil(t, running.StartedAt)
	assert.Nil(t, running.CompletedAt)

	_, err = reg.Update("job_1", domain.WithVMURL("https://vm.example/session/1"))
	require.NoError(t, err)

	done, err := reg.Update("job_1", domain.ToCompleted("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
	assert.Equal(t, "<html></html>", done.HTMLContent)
	assert.Empty(t, done.Error)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, "https://vm.example/session/1", done.VMURL)
}

func TestJobRegistry_LifecycleFailed(t *testing.T) {
	reg := NewJobRegistry()
	_, err := reg.Create("job_1", "https://example.com")
	require.NoError(t, err)
	_, err = reg.Update("job_1", domain.ToRunning())
	require.NoError(t, err)

	failed, err := reg.Update("job_1", domain.ToFailed("Login failed: CAPTCHA detected."))
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, failed.Status)
	assert.Empty(t, failed.HTMLContent)
	assert.Equal(t, "Login failed: CAPTCHA detected.", failed.Error)
	assert.NotNil(t, failed.CompletedAt)
}

func TestJobRegistry_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []domain.JobUpdate
		upd   domain.JobUpdate
		want  error
	}{
		{
			name: "pending to completed",
			upd:  domain.ToCompleted("<html></html>"),
			want: domain.ErrInvalidTransition,
		},
		{
			name: "pending to failed",
			upd:  domain.ToFailed("boom"),
			want: domain.ErrInvalidTransition,
		},
		{
			name:  "running to running",
			setup: []domain.JobUpdate{domain.ToRunning()},
			upd:   domain.ToRunning(),
			want:  domain.ErrInvalidTransition,
		},
		{
			name:  "completed without html",
			setup: []domain.JobUpdate{domain.ToRunning()},
			upd:   domain.ToCompleted(""),
			want:  domain.ErrInvalidTransition,
		},
		{
			name:  "failed without error",
			setup: []domain.JobUpdate{domain.ToRunning()},
			upd:   domain.ToFailed(""),
			want:  domain.ErrInvalidTransition,
		},
		{
			name:  "html without status",
			setup: []domain.JobUpdate{domain.ToRunning()},
			upd:   domain.JobUpdate{HTMLContent: strPtr("<html></html>")},
			want:  domain.ErrInvalidTransition,
		},
		{
			name:  "completed to failed",
			setup: []domain.JobUpdate{domain.ToRunning(), domain.ToCompleted("<html></html>")},
			upd:   domain.ToFailed("late"),
			want:  domain.ErrInvalidTransition,
		},
		{
			name:  "failed to running",
			setup: []domain.JobUpdate{domain.ToRunning(), domain.ToFailed("boom")},
			upd:   domain.ToRunning(),
			want:  domain.ErrInvalidTransition,
		},
		{
			name:  "field update on terminal job",
			setup: []domain.JobUpdate{domain.ToRunning(), domain.ToFailed("boom")},
			upd:   domain.WithTraceURL("https://trace.example/1"),
			want:  domain.ErrJobTerminal,
		},
		{
			name:  "vm url rewritten",
			setup: []domain.JobUpdate{domain.ToRunning(), domain.WithVMURL("https://vm/1")},
			upd:   domain.WithVMURL("https://vm/2"),
			want:  domain.ErrFieldImmutable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewJobRegistry()
			_, err := reg.Create("job_1", "https://example.com")
			require.NoError(t, err)
			for _, s := range tt.setup {
				_, err := reg.Update("job_1", s)
				require.NoError(t, err)
			}
			before, err := reg.Get("job_1")
			require.NoError(t, err)

			_, err = reg.Update("job_1", tt.upd)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)

			after, err := reg.Get("job_1")
			require.NoError(t, err)
			assert.Equal(t, before, after, "rejected update must not mutate the record")
		})
	}
}

func TestJobRegistry_ReturnsCopies(t *testing.T) {
	reg := NewJobRegistry()
	_, err := reg.Create("job_1", "https://example.com")
	require.NoError(t, err)

	snapshot, err := reg.Get("job_1")
	require.NoError(t, err)
	snapshot.Status = domain.JobStatusCompleted
	snapshot.HTMLContent = "tampered"

	got, err := reg.Get("job_1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Empty(t, got.HTMLContent)
}

func TestJobRegistry_ConcurrentJobsAreIndependent(t *testing.T) {
	reg := NewJobRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job_%d", i)
			_, err := reg.Create(id, "https://example.com")
			assert.NoError(t, err)
			_, err = reg.Update(id, domain.ToRunning())
			assert.NoError(t, err)
			if i%2 == 0 {
				_, err = reg.Update(id, domain.ToCompleted(fmt.Sprintf("<html>%d</html>", i)))
			} else {
				_, err = reg.Update(id, domain.ToFailed(fmt.Sprintf("error %d", i)))
			}
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 50, reg.Len())
	for i := 0; i < 50; i++ {
		job, err := reg.Get(fmt.Sprintf("job_%d", i))
		require.NoError(t, err)
		require.NotNil(t, job.CompletedAt)
		if i%2 == 0 {
			assert.Equal(t, domain.JobStatusCompleted, job.Status)
			assert.Equal(t, fmt.Sprintf("<html>%d</html>", i), job.HTMLContent)
			assert.Empty(t, job.Error)
		} else {
			assert.Equal(t, domain.JobStatusFailed, job.Status)
			assert.Equal(t, fmt.Sprintf("error %d", i), job.Error)
			assert.Empty(t, job.HTMLContent)
		}
	}
}

func strPtr(s string) *string { return &s }
