package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/airlift-ota/airlift/internal/directory"
	"github.com/airlift-ota/airlift/internal/saga"
)

// AddUser grants a user one role in an organization.
func (s *Service) AddUser(ctx context.Context, orgName, username, role string) error {
	if !validRole(role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	user, orgGroup, err := s.resolveUserAndOrg(ctx, orgName, username)
	if err != nil {
		return err
	}
	roleGroup, err := s.roleSubgroup(ctx, orgGroup, role)
	if err != nil {
		return err
	}

	led := saga.New(orgName, saga.EntityUserAdd)

	if err := s.dir.AddUserToGroup(ctx, user.ID, roleGroup.ID); err != nil {
		// First step: nothing recorded, nothing to undo.
		return fmt.Errorf("add user to role group: %w", err)
	}
	led.Record(saga.KindMembershipAdded, saga.MembershipID(user.ID, roleGroup.ID))
	led.MarkLocalCommitted()

	slog.InfoContext(ctx, "user added to organization",
		"organization", orgName, "user", username, "role", role)
	return nil
}

// UpdateUserRole moves a user to a new role: add to the new role group
// first, then remove from the old one. If the removal fails the compensator
// takes the just-added membership back out.
func (s *Service) UpdateUserRole(ctx context.Context, orgName, username, newRole string) error {
	if !validRole(newRole) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, newRole)
	}

	user, orgGroup, err := s.resolveUserAndOrg(ctx, orgName, username)
	if err != nil {
		return err
	}

	currentRole, err := s.currentRole(ctx, orgName, user.ID)
	if err != nil {
		return err
	}
	if currentRole == newRole {
		return nil
	}
	if currentRole == RoleOwner {
		if err := s.guardLastOwner(ctx, orgGroup, user.ID); err != nil {
			return err
		}
	}

	currentGroup, err := s.roleSubgroup(ctx, orgGroup, currentRole)
	if err != nil {
		return err
	}
	newGroup, err := s.roleSubgroup(ctx, orgGroup, newRole)
	if err != nil {
		return err
	}

	led := saga.New(orgName, saga.EntityUserUpdate)

	if err := s.dir.AddUserToGroup(ctx, user.ID, newGroup.ID); err != nil {
		return fmt.Errorf("add user to new role group: %w", err)
	}
	led.Record(saga.KindMembershipAdded, saga.MembershipID(user.ID, newGroup.ID))

	if err := s.dir.RemoveUserFromGroup(ctx, user.ID, currentGroup.ID); err != nil {
		return s.abort(ctx, led, fmt.Errorf("remove user from old role group: %w", err))
	}
	led.Record(saga.KindMembershipRemoved, saga.MembershipID(user.ID, currentGroup.ID))
	led.MarkLocalCommitted()

	slog.InfoContext(ctx, "user role updated",
		"organization", orgName, "user", username, "from", currentRole, "to", newRole)
	return nil
}

// RemoveUser removes a user from every group of an organization. Each
// removal is recorded so a partial failure re-adds the memberships already
// taken away.
func (s *Service) RemoveUser(ctx context.Context, orgName, username string) error {
	user, orgGroup, err := s.resolveUserAndOrg(ctx, orgName, username)
	if err != nil {
		return err
	}

	groups, err := s.dir.ListUserGroups(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list user groups: %w", err)
	}
	orgGroups := groupsInOrg(groups, orgName)
	if len(orgGroups) == 0 {
		return fmt.Errorf("%w: %s has no access in %s", ErrUserNotFound, username, orgName)
	}

	if memberOfRole(orgGroups, orgName, RoleOwner) {
		if err := s.guardLastOwner(ctx, orgGroup, user.ID); err != nil {
			return err
		}
	}

	led := saga.New(orgName, saga.EntityUserRemove)

	for _, g := range orgGroups {
		if err := s.dir.RemoveUserFromGroup(ctx, user.ID, g.ID); err != nil {
			return s.abort(ctx, led, fmt.Errorf("remove user from group %s: %w", g.Path, err))
		}
		led.Record(saga.KindMembershipRemoved, saga.MembershipID(user.ID, g.ID))
	}
	led.MarkLocalCommitted()

	slog.InfoContext(ctx, "user removed from organization",
		"organization", orgName, "user", username, "groups", len(orgGroups))
	return nil
}

func (s *Service) resolveUserAndOrg(ctx context.Context, orgName, username string) (*directory.User, *directory.Group, error) {
	user, err := s.dir.FindUserByUsername(ctx, username)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, nil, err
	}
	orgGroup, err := s.orgGroup(ctx, orgName)
	if err != nil {
		return nil, nil, err
	}
	return user, orgGroup, nil
}

// currentRole derives the user's org-level role from their group paths.
func (s *Service) currentRole(ctx context.Context, orgName, userID string) (string, error) {
	groups, err := s.dir.ListUserGroups(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list user groups: %w", err)
	}
	prefix := "/" + orgName + "/"
	for _, g := range groups {
		if rest, ok := strings.CutPrefix(g.Path, prefix); ok && validRole(rest) {
			return rest, nil
		}
	}
	return "", fmt.Errorf("%w: user has no role in %s", ErrUserNotFound, orgName)
}

// guardLastOwner refuses to strip owner access from the only owner. The
// check is best effort: it races with concurrent role changes for other
// users, which this layer does not serialise.
func (s *Service) guardLastOwner(ctx context.Context, orgGroup *directory.Group, userID string) error {
	ownerGroup, err := s.roleSubgroup(ctx, orgGroup, RoleOwner)
	if err != nil {
		return err
	}
	members, err := s.dir.ListGroupMembers(ctx, ownerGroup.ID)
	if err != nil {
		return fmt.Errorf("list owner group members: %w", err)
	}
	for _, m := range members {
		if m.ID != userID {
			return nil
		}
	}
	return ErrLastOwner
}

func groupsInOrg(groups []directory.Group, orgName string) []directory.Group {
	prefix := "/" + orgName + "/"
	var out []directory.Group
	for _, g := range groups {
		if strings.HasPrefix(g.Path, prefix) || g.Path == "/"+orgName {
			out = append(out, g)
		}
	}
	return out
}

func memberOfRole(groups []directory.Group, orgName, role string) bool {
	want := "/" + orgName + "/" + role
	for _, g := range groups {
		if g.Path == want {
			return true
		}
	}
	return false
}
