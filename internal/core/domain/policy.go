package domain

// Resource names a protected entity family
type Resource string

const (
	ResourceIssue      Resource = "issue"
	ResourcePhoto      Resource = "photo"
	ResourceComment    Resource = "comment"
	ResourceCategory   Resource = "category"
	ResourceUser       Resource = "user"
	ResourceProfile    Resource = "profile"
	ResourceExport     Resource = "export"
	ResourceImport     Resource = "import"
	ResourceSettings   Resource = "settings"
	ResourceStats      Resource = "stats"
	ResourceAIAnalysis Resource = "ai_analysis"
)

// Action is an operation on a resource
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// RoleSet is a small set of roles
type RoleSet []Role

// Has reports whether role is in the set
func (s RoleSet) Has(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

var (
	anyRole   = RoleSet(AllRoles)
	staffOnly = RoleSet(StaffRoles)
	adminOnly = RoleSet{RoleAdmin}
	nobody    = RoleSet{}
)

// Rule grants an action unconditionally to Always, to IfOwner when the
// actor owns the record, and to IfParentOwner when the actor created the
// issue the record belongs to.
type Rule struct {
	Always        RoleSet
	IfOwner       RoleSet
	IfParentOwner RoleSet
}

// Ownership describes the actor's relation to the target record
type Ownership struct {
	Owner       bool
	ParentOwner bool
}

// permissions is the resource x action table. Missing entries deny.
// Visibility of the parent issue is checked separately by CanViewIssue.
var permissions = map[Resource]map[Action]Rule{
	ResourceIssue: {
		ActionList:   {Always: anyRole},
		ActionRead:   {Always: anyRole},
		ActionCreate: {Always: anyRole},
		ActionUpdate: {Always: staffOnly, IfOwner: RoleSet{RoleUser}},
		ActionDelete: {Always: adminOnly, IfOwner: RoleSet{RoleUser}},
	},
	ResourcePhoto: {
		ActionList:   {Always: anyRole},
		ActionRead:   {Always: anyRole},
		ActionCreate: {Always: anyRole},
		ActionDelete: {Always: adminOnly, IfOwner: anyRole, IfParentOwner: RoleSet{RoleUser}},
	},
	ResourceComment: {
		ActionList:   {Always: anyRole},
		ActionCreate: {Always: anyRole},
		ActionDelete: {Always: adminOnly, IfOwner: anyRole},
	},
	ResourceCategory: {
		ActionList:   {Always: anyRole},
		ActionRead:   {Always: anyRole},
		ActionCreate: {Always: adminOnly},
		ActionUpdate: {Always: adminOnly},
		ActionDelete: {Always: adminOnly},
	},
	ResourceUser: {
		ActionList:   {Always: staffOnly},
		ActionRead:   {Always: staffOnly, IfOwner: anyRole},
		ActionCreate: {Always: adminOnly},
		ActionUpdate: {Always: adminOnly},
		ActionDelete: {Always: adminOnly},
	},
	ResourceProfile: {
		ActionRead:   {Always: anyRole},
		ActionUpdate: {Always: anyRole},
	},
	ResourceExport: {
		ActionRead: {Always: staffOnly},
	},
	ResourceImport: {
		ActionCreate: {Always: adminOnly},
		ActionRead:   {Always: adminOnly},
	},
	ResourceSettings: {
		ActionList:   {Always: staffOnly},
		ActionUpdate: {Always: adminOnly},
	},
	ResourceStats: {
		ActionRead: {Always: anyRole},
	},
	ResourceAIAnalysis: {
		ActionCreate: {Always: anyRole},
	},
}

// Can reports whether actor may perform action on resource
func Can(actor Actor, resource Resource, action Action, own Ownership) bool {
	actions, ok := permissions[resource]
	if !ok {
		return false
	}
	rule, ok := actions[action]
	if !ok {
		return false
	}
	if rule.Always.Has(actor.Role) {
		return true
	}
	if own.Owner && rule.IfOwner.Has(actor.Role) {
		return true
	}
	if own.ParentOwner && rule.IfParentOwner.Has(actor.Role) {
		return true
	}
	return false
}

// Authorize is Can returning a Forbidden error on denial
func Authorize(actor Actor, resource Resource, action Action, own Ownership) error {
	if Can(actor, resource, action, own) {
		return nil
	}
	return Forbidden("you do not have permission to " + string(action) + " this " + string(resource))
}

// Field is a writable attribute name as it appears in request payloads
type Field string

const (
	FieldTitle         Field = "title"
	FieldDescription   Field = "description"
	FieldAddress       Field = "address"
	FieldLatitude      Field = "latitude"
	FieldLongitude     Field = "longitude"
	FieldStatus        Field = "status"
	FieldPriority      Field = "priority"
	FieldAssignedToID  Field = "assignedToId"
	FieldCategoryID    Field = "categoryId"
	FieldSubcategoryID Field = "subcategoryId"
	FieldIsEmergency   Field = "isEmergency"

	FieldEmail     Field = "email"
	FieldUsername  Field = "username"
	FieldFirstName Field = "firstName"
	FieldLastName  Field = "lastName"
	FieldPhone     Field = "phone"
	FieldRole      Field = "role"
	FieldIsActive  Field = "isActive"
	FieldPassword  Field = "password"
)

// writableFields is the resource x field table for mutations.
// Fields outside the caller's set are dropped, not rejected.
var writableFields = map[Resource]map[Field]RoleSet{
	ResourceIssue: {
		FieldTitle:         anyRole,
		FieldDescription:   anyRole,
		FieldAddress:       anyRole,
		FieldLatitude:      anyRole,
		FieldLongitude:     anyRole,
		FieldStatus:        staffOnly,
		FieldPriority:      staffOnly,
		FieldAssignedToID:  staffOnly,
		FieldCategoryID:    staffOnly,
		FieldSubcategoryID: staffOnly,
		FieldIsEmergency:   staffOnly,
	},
	ResourceUser: {
		FieldEmail:     adminOnly,
		FieldUsername:  adminOnly,
		FieldFirstName: adminOnly,
		FieldLastName:  adminOnly,
		FieldPhone:     adminOnly,
		FieldRole:      adminOnly,
		FieldIsActive:  adminOnly,
		FieldPassword:  adminOnly,
	},
	ResourceProfile: {
		FieldFirstName: anyRole,
		FieldLastName:  anyRole,
		FieldPhone:     anyRole,
		FieldEmail:     nobody,
		FieldRole:      nobody,
		FieldIsActive:  nobody,
	},
}

// CanWrite reports whether role may set field on resource
func CanWrite(role Role, resource Resource, field Field) bool {
	fields, ok := writableFields[resource]
	if !ok {
		return false
	}
	return fields[field].Has(role)
}

// WritableFields returns the set of fields role may set on resource
func WritableFields(role Role, resource Resource) map[Field]bool {
	out := make(map[Field]bool)
	for field, roles := range writableFields[resource] {
		if roles.Has(role) {
			out[field] = true
		}
	}
	return out
}

// Visibility is the row-level issue filter applied for a role
type Visibility int

const (
	// VisibleOwn limits to issues the actor created
	VisibleOwn Visibility = iota
	// VisibleOwnAssignedOrUnassigned adds issues assigned to the actor or to nobody
	VisibleOwnAssignedOrUnassigned
	// VisibleAll applies no row filter
	VisibleAll
)

var issueVisibility = map[Role]Visibility{
	RoleUser:       VisibleOwn,
	RoleSupervisor: VisibleOwnAssignedOrUnassigned,
	RoleOffice:     VisibleAll,
	RoleAdmin:      VisibleAll,
}

// IssueVisibility returns the listing filter for role; unknown roles see only their own
func IssueVisibility(role Role) Visibility {
	if v, ok := issueVisibility[role]; ok {
		return v
	}
	return VisibleOwn
}

// CanViewIssue applies IssueVisibility to a single issue
func CanViewIssue(actor Actor, createdByID uint, assignedToID *uint) bool {
	switch IssueVisibility(actor.Role) {
	case VisibleAll:
		return true
	case VisibleOwnAssignedOrUnassigned:
		return createdByID == actor.ID || assignedToID == nil || *assignedToID == actor.ID
	default:
		return createdByID == actor.ID
	}
}

// CanSeeInternalComments reports whether role may read and write internal comments
func CanSeeInternalComments(role Role) bool {
	return role.IsStaff()
}
