package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/civicdash/app/models"
	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/app/repository/memory"
	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/issues"
)

const demo = `
users:
  - email: admin@city.example
    password: secret123
    full_name: City Admin
    role: admin
  - email: works@city.example
    password: secret123
    full_name: Pat Works
    role: department_official
    department: public_works
  - email: citizen@city.example
    password: secret123
    full_name: Casey Citizen
issues:
  - title: Pothole on Main St
    description: Deep hole in the right lane
    category: pothole
    reporter: citizen@city.example
  - title: Graffiti at the station
    description: Tagged wall next to platform 2
    category: graffiti
    reporter: Citizen@City.example
    assignee: works@city.example
    status: resolved
`

func newSeeder(t *testing.T) (*Seeder, *repository.Repositories) {
	t.Helper()
	repos := memory.New().Repositories()
	id := identity.NewService(repos.Profile, repos.ProviderAccount, identity.NewMemoryRefreshStore(), &identity.Config{
		JWTSecret:        []byte("seed-secret"),
		AccessTokenTTL:   time.Minute,
		RefreshTokenTTL:  time.Hour,
		AllowAdminSignup: true,
	})
	return &Seeder{
		Identity: id,
		Issues:   issues.NewService(repos.Issue, repos.Profile),
		Profiles: repos.Profile,
	}, repos
}

func TestApplyCreatesUsersAndIssues(t *testing.T) {
	f, err := Parse([]byte(demo))
	require.NoError(t, err)

	s, repos := newSeeder(t)
	ctx := context.Background()

	res, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{UsersCreated: 3, Issues: 2}, res)

	list, total, err := repos.Issue.List(ctx, repository.IssueFilter{Status: models.StatusResolved}, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "Graffiti at the station", list[0].Title)
	assert.NotNil(t, list[0].ResolvedAt)

	worker, err := repos.Profile.GetByEmail(ctx, "works@city.example")
	require.NoError(t, err)
	require.NotNil(t, list[0].AssignedTo)
	assert.Equal(t, worker.ID, *list[0].AssignedTo)

	// Re-running the same file writes nothing new.
	res, err = s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, &Result{UsersExisting: 3, IssuesExisting: 2}, res)

	_, total, err = repos.Issue.List(ctx, repository.IssueFilter{}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	resolved, _, err := repos.Issue.List(ctx, repository.IssueFilter{Status: models.StatusResolved}, 0, 10)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, list[0].ResolvedAt, resolved[0].ResolvedAt, "existing issues are left untouched")
}

func TestParseRejectsBadIssues(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing reporter": "issues:\n  - title: x\n",
		"unknown status":   "issues:\n  - title: x\n    reporter: a@b.c\n    status: done\n",
		"no assignee":      "issues:\n  - title: x\n    reporter: a@b.c\n    status: in_progress\n",
		"not yaml":         "users: [",
	}
	for name, doc := range tests {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyUnknownReporter(t *testing.T) {
	s, _ := newSeeder(t)
	_, err := s.Apply(context.Background(), &File{Issues: []Issue{{Title: "x", Reporter: "ghost@city.example"}}})
	assert.ErrorContains(t, err, "ghost@city.example")
}
