package model

// Role names the account kind embedded in access tokens.
type Role string

const (
	RoleUser    Role = "User"
	RoleCaptain Role = "Captain"
)

// RoleDescriptor carries everything that differs between the two account
// kinds.  The account service, the stores and the router are all
// parameterized by a descriptor instead of being duplicated per role.
type RoleDescriptor struct {
	Role             Role   // role claim written into access tokens
	Partition        string // collection / table holding the accounts
	PathPrefix       string // route group, e.g. /api/v1/users
	RequiresUsername bool   // users carry a unique username
	RequiresVehicle  bool   // captains carry a vehicle and a status
}

var (
	// UserRole describes riders.
	UserRole = RoleDescriptor{
		Role:             RoleUser,
		Partition:        "users",
		PathPrefix:       "/api/v1/users",
		RequiresUsername: true,
	}

	// CaptainRole describes drivers.
	CaptainRole = RoleDescriptor{
		Role:            RoleCaptain,
		Partition:       "captains",
		PathPrefix:      "/api/v1/captains",
		RequiresVehicle: true,
	}
)

// Roles lists every descriptor the service knows about.
func Roles() []RoleDescriptor {
	return []RoleDescriptor{UserRole, CaptainRole}
}

// DescriptorFor looks up the descriptor of a role claim.
func DescriptorFor(r Role) (RoleDescriptor, bool) {
	for _, d := range Roles() {
		if d.Role == r {
			return d, true
		}
	}
	return RoleDescriptor{}, false
}
