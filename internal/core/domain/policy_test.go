package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan_IssueUpdate(t *testing.T) {
	user := Actor{ID: 1, Role: RoleUser}
	office := Actor{ID: 2, Role: RoleOffice}

	assert.True(t, Can(user, ResourceIssue, ActionUpdate, Ownership{Owner: true}))
	assert.False(t, Can(user, ResourceIssue, ActionUpdate, Ownership{}))
	assert.True(t, Can(office, ResourceIssue, ActionUpdate, Ownership{}))
}

func TestCan_IssueDelete(t *testing.T) {
	cases := []struct {
		role  Role
		owner bool
		want  bool
	}{
		{RoleAdmin, false, true},
		{RoleUser, true, true},
		{RoleUser, false, false},
		{RoleSupervisor, true, false},
		{RoleOffice, false, false},
	}
	for _, tc := range cases {
		got := Can(Actor{ID: 9, Role: tc.role}, ResourceIssue, ActionDelete, Ownership{Owner: tc.owner})
		assert.Equal(t, tc.want, got, "role=%s owner=%v", tc.role, tc.owner)
	}
}

func TestCan_PhotoDelete(t *testing.T) {
	// uploader always, USER on own issue, admin always
	assert.True(t, Can(Actor{Role: RoleSupervisor}, ResourcePhoto, ActionDelete, Ownership{Owner: true}))
	assert.True(t, Can(Actor{Role: RoleUser}, ResourcePhoto, ActionDelete, Ownership{ParentOwner: true}))
	assert.True(t, Can(Actor{Role: RoleAdmin}, ResourcePhoto, ActionDelete, Ownership{}))
	assert.False(t, Can(Actor{Role: RoleOffice}, ResourcePhoto, ActionDelete, Ownership{ParentOwner: true}))
	assert.False(t, Can(Actor{Role: RoleUser}, ResourcePhoto, ActionDelete, Ownership{}))
}

func TestCan_AdminOnlyResources(t *testing.T) {
	for _, role := range AllRoles {
		actor := Actor{Role: role}
		want := role == RoleAdmin
		assert.Equal(t, want, Can(actor, ResourceCategory, ActionCreate, Ownership{}), role)
		assert.Equal(t, want, Can(actor, ResourceImport, ActionCreate, Ownership{}), role)
		assert.Equal(t, want, Can(actor, ResourceUser, ActionDelete, Ownership{}), role)
	}
}

func TestCan_Export(t *testing.T) {
	assert.False(t, Can(Actor{Role: RoleUser}, ResourceExport, ActionRead, Ownership{}))
	for _, role := range StaffRoles {
		assert.True(t, Can(Actor{Role: role}, ResourceExport, ActionRead, Ownership{}), role)
	}
}

func TestCan_UnknownEntriesDeny(t *testing.T) {
	assert.False(t, Can(Actor{Role: RoleAdmin}, Resource("nope"), ActionRead, Ownership{}))
	assert.False(t, Can(Actor{Role: RoleAdmin}, ResourceStats, ActionDelete, Ownership{}))
	assert.False(t, Can(Actor{Role: Role("GUEST")}, ResourceIssue, ActionList, Ownership{}))
}

func TestAuthorize_ReturnsForbidden(t *testing.T) {
	err := Authorize(Actor{Role: RoleUser}, ResourceExport, ActionRead, Ownership{})
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindForbidden, KindOf(err))

	assert.NoError(t, Authorize(Actor{Role: RoleOffice}, ResourceExport, ActionRead, Ownership{}))
}

func TestWritableFields_Issue(t *testing.T) {
	userFields := WritableFields(RoleUser, ResourceIssue)
	assert.Len(t, userFields, 5)
	for _, f := range []Field{FieldTitle, FieldDescription, FieldAddress, FieldLatitude, FieldLongitude} {
		assert.True(t, userFields[f], f)
	}
	assert.False(t, userFields[FieldStatus])
	assert.False(t, userFields[FieldIsEmergency])

	for _, role := range StaffRoles {
		staff := WritableFields(role, ResourceIssue)
		assert.Len(t, staff, 11, role)
		assert.True(t, CanWrite(role, ResourceIssue, FieldAssignedToID))
	}
}

func TestWritableFields_Profile(t *testing.T) {
	assert.True(t, CanWrite(RoleUser, ResourceProfile, FieldPhone))
	assert.False(t, CanWrite(RoleAdmin, ResourceProfile, FieldRole))
	assert.False(t, CanWrite(RoleUser, ResourceProfile, FieldIsActive))
}

func TestCanViewIssue(t *testing.T) {
	other := uint(7)
	self := uint(3)

	user := Actor{ID: 3, Role: RoleUser}
	assert.True(t, CanViewIssue(user, 3, nil))
	assert.False(t, CanViewIssue(user, 4, nil))

	sup := Actor{ID: 3, Role: RoleSupervisor}
	assert.True(t, CanViewIssue(sup, 4, nil))
	assert.True(t, CanViewIssue(sup, 4, &self))
	assert.True(t, CanViewIssue(sup, 3, &other))
	assert.False(t, CanViewIssue(sup, 4, &other))

	for _, role := range []Role{RoleOffice, RoleAdmin} {
		assert.True(t, CanViewIssue(Actor{ID: 3, Role: role}, 4, &other))
	}
}

func TestIssueVisibility_UnknownRole(t *testing.T) {
	assert.Equal(t, VisibleOwn, IssueVisibility(Role("GUEST")))
}

func TestAppError_IsMatchesKind(t *testing.T) {
	err := NotFound("issue not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
