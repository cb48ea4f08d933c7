package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlift-ota/airlift/internal/configstore"
	"github.com/airlift-ota/airlift/internal/directory"
	"github.com/airlift-ota/airlift/internal/registry"
	"github.com/airlift-ota/airlift/internal/saga"
	"github.com/airlift-ota/airlift/internal/saga/outbox"
	"github.com/airlift-ota/airlift/internal/store/sqlite"
)

// fakeDir is an in-memory directory: groups keep their creation order and
// their parent path, memberships are per group. Calls are logged in order
// and fail the calls listed in fail, keyed "<op>:<args>".
type fakeDir struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	groups  []*directory.Group
	parents map[string]string          // group id -> parent id
	members map[string]map[string]bool // group id -> user ids
	users   map[string]directory.User  // by username
}

func newFakeDir() *fakeDir {
	return &fakeDir{
		fail:    map[string]error{},
		parents: map[string]string{},
		members: map[string]map[string]bool{},
		users:   map[string]directory.User{},
	}
}

func (d *fakeDir) record(call string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	return d.fail[call]
}

func (d *fakeDir) callLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDir) addUser(username, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[username] = directory.User{ID: id, Username: username}
}

// dropMember mutates state directly, without logging, for test setup.
func (d *fakeDir) dropMember(userID, groupID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.members[groupID], userID)
}

func (d *fakeDir) lookup(id string) *directory.Group {
	for _, g := range d.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (d *fakeDir) isMember(userID, groupID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.members[groupID][userID]
}

func (d *fakeDir) addGroup(parentID, name string) string {
	var id, path string
	if parentID == "" {
		id = name + "-id"
		path = "/" + name
	} else {
		id = strings.TrimSuffix(parentID, "-id") + "-" + name + "-id"
		path = d.lookup(parentID).Path + "/" + name
	}
	d.groups = append(d.groups, &directory.Group{ID: id, Name: name, Path: path})
	d.parents[id] = parentID
	d.members[id] = map[string]bool{}
	return id
}

func (d *fakeDir) CreateGroup(_ context.Context, name string) (string, error) {
	if err := d.record("create-group:" + name); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addGroup("", name), nil
}

func (d *fakeDir) CreateChildGroup(_ context.Context, parentID, name string) (string, error) {
	if err := d.record("create-child:" + parentID + ":" + name); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addGroup(parentID, name), nil
}

func (d *fakeDir) DeleteGroup(_ context.Context, groupID string) error {
	if err := d.record("delete-group:" + groupID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, g := range d.groups {
		if g.ID == groupID {
			d.groups = append(d.groups[:i], d.groups[i+1:]...)
			break
		}
	}
	delete(d.members, groupID)
	return nil
}

func (d *fakeDir) AddUserToGroup(_ context.Context, userID, groupID string) error {
	if err := d.record("add-member:" + userID + ":" + groupID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.members[groupID] == nil {
		d.members[groupID] = map[string]bool{}
	}
	d.members[groupID][userID] = true
	return nil
}

func (d *fakeDir) RemoveUserFromGroup(_ context.Context, userID, groupID string) error {
	if err := d.record("remove-member:" + userID + ":" + groupID); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.members[groupID], userID)
	return nil
}

func (d *fakeDir) FindUserByUsername(_ context.Context, username string) (*directory.User, error) {
	if err := d.record("find-user:" + username); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[username]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &u, nil
}

func (d *fakeDir) FindGroupByName(_ context.Context, name string) (*directory.Group, error) {
	if err := d.record("find-group:" + name); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, g := range d.groups {
		if g.Name == name && d.parents[g.ID] == "" {
			out := *g
			return &out, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (d *fakeDir) ListChildGroups(_ context.Context, groupID string) ([]directory.Group, error) {
	if err := d.record("list-children:" + groupID); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []directory.Group
	for _, g := range d.groups {
		if d.parents[g.ID] == groupID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (d *fakeDir) ListUserGroups(_ context.Context, userID string) ([]directory.Group, error) {
	if err := d.record("list-user-groups:" + userID); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []directory.Group
	for _, g := range d.groups {
		if d.members[g.ID][userID] {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (d *fakeDir) ListGroupMembers(_ context.Context, groupID string) ([]directory.User, error) {
	if err := d.record("list-members:" + groupID); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []directory.User
	for id := range d.members[groupID] {
		out = append(out, directory.User{ID: id})
	}
	return out, nil
}

// fakeConfigs is an in-memory config store with configurable delete support.
type fakeConfigs struct {
	mu              sync.Mutex
	calls           []string
	fail            map[string]error
	deleteSupported bool
	workspaces      map[string]bool
}

func newFakeConfigs(deleteSupported bool) *fakeConfigs {
	return &fakeConfigs{
		fail:            map[string]error{},
		deleteSupported: deleteSupported,
		workspaces:      map[string]bool{},
	}
}

func (c *fakeConfigs) record(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.fail[call]
}

func (c *fakeConfigs) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConfigs) CreateWorkspace(_ context.Context, name string) (string, error) {
	if err := c.record("create-workspace:" + name); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces[name] = true
	return name, nil
}

func (c *fakeConfigs) DeleteWorkspace(_ context.Context, name string) error {
	if err := c.record("delete-workspace:" + name); err != nil {
		return err
	}
	if !c.deleteSupported {
		return configstore.ErrUnsupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.workspaces, name)
	return nil
}

func (c *fakeConfigs) SupportsWorkspaceDelete() bool { return c.deleteSupported }

func (c *fakeConfigs) CreateDefaultConfig(_ context.Context, workspace, key string, _ any, _ map[string]any) error {
	return c.record("create-default-config:" + workspace + ":" + key)
}

func (c *fakeConfigs) CreateExperiment(_ context.Context, workspace, name string, _ []configstore.Variant) (string, error) {
	if err := c.record("create-experiment:" + workspace + ":" + name); err != nil {
		return "", err
	}
	return "exp-1", nil
}

func (c *fakeConfigs) RampExperiment(_ context.Context, workspace, experimentID string, percent int) error {
	return c.record(fmt.Sprintf("ramp-experiment:%s:%s:%d", workspace, experimentID, percent))
}

// fakeRegistry is an in-memory registry.Repository. fail is keyed by
// operation name ("insert-organization", "insert-application", ...).
type fakeRegistry struct {
	mu        sync.Mutex
	fail      map[string]error
	orgs      map[string]registry.Organization
	apps      map[string]registry.Application
	releases  []registry.Release
	wsCounter int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		fail: map[string]error{},
		orgs: map[string]registry.Organization{},
		apps: map[string]registry.Application{},
	}
}

func (r *fakeRegistry) InsertOrganization(_ context.Context, org *registry.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["insert-organization"]; err != nil {
		return err
	}
	r.orgs[org.Name] = *org
	return nil
}

func (r *fakeRegistry) GetOrganization(_ context.Context, name string) (*registry.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[name]
	if !ok {
		return nil, errors.New("organization not found")
	}
	return &org, nil
}

func (r *fakeRegistry) AllocateWorkspaceName(_ context.Context, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["allocate-workspace"]; err != nil {
		return "", err
	}
	r.wsCounter++
	return fmt.Sprintf("workspace%d", r.wsCounter), nil
}

func (r *fakeRegistry) InsertApplication(_ context.Context, app *registry.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["insert-application"]; err != nil {
		return err
	}
	r.apps[app.OrgName+"/"+app.Name] = *app
	return nil
}

func (r *fakeRegistry) GetApplication(_ context.Context, orgName, appName string) (*registry.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[orgName+"/"+appName]
	if !ok {
		return nil, errors.New("application not found")
	}
	return &app, nil
}

func (r *fakeRegistry) InsertRelease(_ context.Context, rel *registry.Release) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["insert-release"]; err != nil {
		return err
	}
	r.releases = append(r.releases, *rel)
	return nil
}

// noopCache always misses, so every lookup hits the fake directory and the
// call logs stay deterministic.
type noopCache struct{}

func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (noopCache) Get(context.Context, string) (string, error)                   { return "", nil }
func (noopCache) GenerateKey(operation, key string) string                      { return operation + ":" + key }

type testEnv struct {
	dir     *fakeDir
	configs *fakeConfigs
	reg     *fakeRegistry
	repo    outbox.Repository
	comp    *saga.Compensator
	svc     *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		dir:     newFakeDir(),
		configs: newFakeConfigs(true),
		reg:     newFakeRegistry(),
		repo:    sqlite.NewOutboxRepository(db),
	}
	env.comp = saga.NewCompensator(env.dir, env.configs)
	env.svc = NewService(env.dir, env.configs, env.reg, env.comp, saga.NewOutboxWriter(env.repo), noopCache{})
	return env
}

func (e *testEnv) outboxEntries(t *testing.T) []outbox.Entry {
	t.Helper()
	entries, err := e.repo.SelectDue(context.Background(), time.Now().Add(24*time.Hour), 1<<30, 100, 0)
	require.NoError(t, err)
	return entries
}

func (e *testEnv) seedOrg(t *testing.T, name, creatorID string) {
	t.Helper()
	_, err := e.svc.CreateOrganization(context.Background(), name, creatorID)
	require.NoError(t, err)
}

func TestCreateOrganizationProvisionsGroupsAndRoles(t *testing.T) {
	env := newTestEnv(t)

	org, err := env.svc.CreateOrganization(context.Background(), "acme", "u1")
	require.NoError(t, err)
	assert.Equal(t, "acme", org.Name)
	assert.Equal(t, []string{"read", "write", "admin", "owner"}, org.Access)

	for _, role := range Roles {
		assert.True(t, env.dir.isMember("u1", "acme-"+role+"-id"), "creator missing from %s", role)
	}

	stored, err := env.reg.GetOrganization(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.CreatedBy)
	assert.Empty(t, env.outboxEntries(t))
}

func TestCreateOrganizationRollsBackOnRoleGroupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.dir.fail["create-child:acme-id:admin"] = errors.New("directory down")

	_, err := env.svc.CreateOrganization(context.Background(), "acme", "u1")
	require.Error(t, err)

	// Everything created before the failure is undone in reverse order.
	assert.Equal(t, []string{
		"create-group:acme",
		"create-child:acme-id:read",
		"add-member:u1:acme-read-id",
		"create-child:acme-id:write",
		"add-member:u1:acme-write-id",
		"create-child:acme-id:admin",
		"remove-member:u1:acme-write-id",
		"delete-group:acme-write-id",
		"remove-member:u1:acme-read-id",
		"delete-group:acme-read-id",
		"delete-group:acme-id",
	}, env.dir.callLog())

	_, err = env.reg.GetOrganization(context.Background(), "acme")
	assert.Error(t, err)
	assert.Empty(t, env.outboxEntries(t))
}

func TestFailedRollbackIsRetriedFromOutbox(t *testing.T) {
	env := newTestEnv(t)
	env.dir.fail["create-child:acme-id:admin"] = errors.New("directory down")
	env.dir.fail["delete-group:acme-id"] = errors.New("directory down")

	_, err := env.svc.CreateOrganization(context.Background(), "acme", "u1")
	require.Error(t, err)

	entries := env.outboxEntries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, string(saga.EntityOrganizationCreate), entries[0].EntityKind)
	assert.Equal(t, "acme", entries[0].EntityName)
	assert.Equal(t, 0, entries[0].Attempts)

	// Directory recovers; the reconciler finishes the cleanup and retires
	// the entry.
	delete(env.dir.fail, "delete-group:acme-id")
	rec := saga.NewReconciler(saga.DefaultReconcilerConfig(), env.repo, env.comp)
	require.NoError(t, rec.Tick(context.Background()))

	assert.Empty(t, env.outboxEntries(t))
	assert.Nil(t, env.dir.lookup("acme-id"))
}

func TestCreateApplicationProvisionsWorkspace(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")

	app, err := env.svc.CreateApplication(context.Background(), "acme", "mobile", "u1")
	require.NoError(t, err)
	assert.Equal(t, "workspace1", app.WorkspaceName)

	assert.True(t, env.configs.workspaces["workspace1"])
	for _, key := range []string{"version", "config_version", "release_config_timeout", "package_timeout"} {
		assert.Contains(t, env.configs.callLog(), "create-default-config:workspace1:"+key)
	}
	for _, role := range Roles {
		assert.True(t, env.dir.isMember("u1", "acme-mobile-"+role+"-id"), "creator missing from %s", role)
	}

	stored, err := env.reg.GetApplication(context.Background(), "acme", "mobile")
	require.NoError(t, err)
	assert.Equal(t, "workspace1", stored.WorkspaceName)
	assert.Empty(t, env.outboxEntries(t))
}

func TestCreateApplicationCleansUpWorkspaceOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.reg.fail["insert-application"] = errors.New("disk full")

	_, err := env.svc.CreateApplication(context.Background(), "acme", "mobile", "u1")
	require.Error(t, err)

	assert.Contains(t, env.configs.callLog(), "delete-workspace:workspace1")
	assert.False(t, env.configs.workspaces["workspace1"])
	assert.Nil(t, env.dir.lookup("acme-mobile-id"))
	assert.Empty(t, env.outboxEntries(t))

	_, err = env.reg.GetApplication(context.Background(), "acme", "mobile")
	assert.Error(t, err)
}

func TestCreateApplicationUnsupportedWorkspaceDeleteGoesToOutbox(t *testing.T) {
	env := newTestEnv(t)
	env.configs.deleteSupported = false
	env.seedOrg(t, "acme", "u1")
	env.reg.fail["insert-application"] = errors.New("disk full")

	_, err := env.svc.CreateApplication(context.Background(), "acme", "mobile", "u1")
	require.Error(t, err)

	// Directory resources are rolled back, but the workspace cannot be
	// deleted, so the operation lands in the outbox for the operator.
	assert.Nil(t, env.dir.lookup("acme-mobile-id"))
	assert.True(t, env.configs.workspaces["workspace1"])

	entries := env.outboxEntries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, string(saga.EntityApplicationCreate), entries[0].EntityKind)
}

func TestAddUserGrantsRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.dir.addUser("bob", "bob-uid")

	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "bob", "write"))
	assert.True(t, env.dir.isMember("bob-uid", "acme-write-id"))
}

func TestAddUserRejectsUnknownRoleAndUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")

	err := env.svc.AddUser(context.Background(), "acme", "bob", "superuser")
	assert.ErrorIs(t, err, ErrUnknownRole)

	err = env.svc.AddUser(context.Background(), "acme", "ghost", "write")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = env.svc.AddUser(context.Background(), "nowhere", "bob", "write")
	require.Error(t, err)
}

func TestUpdateUserRoleMovesMembership(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.dir.addUser("bob", "bob-uid")
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "bob", "read"))

	require.NoError(t, env.svc.UpdateUserRole(context.Background(), "acme", "bob", "write"))
	assert.True(t, env.dir.isMember("bob-uid", "acme-write-id"))
	assert.False(t, env.dir.isMember("bob-uid", "acme-read-id"))
}

func TestUpdateUserRoleRollsBackWhenRemovalFails(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.dir.addUser("bob", "bob-uid")
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "bob", "read"))

	env.dir.fail["remove-member:bob-uid:acme-read-id"] = errors.New("directory down")

	err := env.svc.UpdateUserRole(context.Background(), "acme", "bob", "write")
	require.Error(t, err)

	// The half-applied move is undone: bob keeps read and does not gain
	// write.
	assert.True(t, env.dir.isMember("bob-uid", "acme-read-id"))
	assert.False(t, env.dir.isMember("bob-uid", "acme-write-id"))
	assert.Empty(t, env.outboxEntries(t))
}

func TestUpdateUserRoleRefusesLastOwnerDemotion(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.dir.addUser("alice", "alice-uid")
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "alice", "owner"))
	// The creator relinquishes ownership out of band, leaving alice as the
	// only owner.
	env.dir.dropMember("u1", "acme-owner-id")

	err := env.svc.UpdateUserRole(context.Background(), "acme", "alice", "write")
	assert.ErrorIs(t, err, ErrLastOwner)
	assert.True(t, env.dir.isMember("alice-uid", "acme-owner-id"))
}

func TestRemoveUserRevokesAllAccess(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.dir.addUser("bob", "bob-uid")
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "bob", "read"))
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "bob", "write"))

	require.NoError(t, env.svc.RemoveUser(context.Background(), "acme", "bob"))
	assert.False(t, env.dir.isMember("bob-uid", "acme-read-id"))
	assert.False(t, env.dir.isMember("bob-uid", "acme-write-id"))

	err := env.svc.RemoveUser(context.Background(), "acme", "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRemoveUserReAddsMembershipsWhenRemovalFails(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.dir.addUser("bob", "bob-uid")
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "bob", "read"))
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "bob", "write"))

	env.dir.fail["remove-member:bob-uid:acme-write-id"] = errors.New("directory down")

	err := env.svc.RemoveUser(context.Background(), "acme", "bob")
	require.Error(t, err)

	// The removal that already went through is re-applied, leaving bob's
	// access as it was.
	assert.True(t, env.dir.isMember("bob-uid", "acme-read-id"))
	assert.True(t, env.dir.isMember("bob-uid", "acme-write-id"))
	assert.Empty(t, env.outboxEntries(t))
}

func TestRemoveUserRefusesLastOwner(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	env.dir.addUser("alice", "alice-uid")
	require.NoError(t, env.svc.AddUser(context.Background(), "acme", "alice", "owner"))
	env.dir.dropMember("u1", "acme-owner-id")

	err := env.svc.RemoveUser(context.Background(), "acme", "alice")
	assert.ErrorIs(t, err, ErrLastOwner)
	assert.True(t, env.dir.isMember("alice-uid", "acme-owner-id"))
}

func TestCreateReleaseStagedRolloutCreatesExperiment(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	_, err := env.svc.CreateApplication(context.Background(), "acme", "mobile", "u1")
	require.NoError(t, err)

	rel, err := env.svc.CreateRelease(context.Background(), "acme", "mobile", ReleaseInput{
		PackageVersion: 3,
		ConfigVersion:  "v2",
		RolloutPercent: 25,
		CreatedBy:      "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "exp-1", rel.ExperimentID)
	assert.Contains(t, env.configs.callLog(), "create-experiment:workspace1:release-"+rel.ID)
	assert.Contains(t, env.configs.callLog(), "ramp-experiment:workspace1:exp-1:25")
	require.Len(t, env.reg.releases, 1)
}

func TestCreateReleaseFullRolloutSkipsExperiment(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	_, err := env.svc.CreateApplication(context.Background(), "acme", "mobile", "u1")
	require.NoError(t, err)

	rel, err := env.svc.CreateRelease(context.Background(), "acme", "mobile", ReleaseInput{
		PackageVersion: 3,
		ConfigVersion:  "v2",
		RolloutPercent: 100,
		CreatedBy:      "u1",
	})
	require.NoError(t, err)
	assert.Empty(t, rel.ExperimentID)
	for _, call := range env.configs.callLog() {
		assert.NotContains(t, call, "create-experiment")
	}
}

func TestCreateReleaseRejectsBadRollout(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrg(t, "acme", "u1")
	_, err := env.svc.CreateApplication(context.Background(), "acme", "mobile", "u1")
	require.NoError(t, err)

	_, err = env.svc.CreateRelease(context.Background(), "acme", "mobile", ReleaseInput{RolloutPercent: 101})
	assert.Error(t, err)
	_, err = env.svc.CreateRelease(context.Background(), "acme", "mobile", ReleaseInput{RolloutPercent: -1})
	assert.Error(t, err)
}
