package scope

// Permission names the gated actions.
type Permission string

const (
	PermWriteOffDrugs    Permission = "write_off_drugs"
	PermManageMembers    Permission = "manage_members"
	PermManageInventory  Permission = "manage_inventory"
	PermDiagnosePatients Permission = "diagnose_patients"
	PermDispenseDrugs    Permission = "dispense_drugs"
	PermViewReports      Permission = "view_reports"
	// PermViewAllData is stored on membership rows and carried through the
	// bundle but no endpoint is gated on it.
	PermViewAllData Permission = "view_all_data"
)

// PermissionSet is the bundle of flags a context grants. Individual
// contexts always get the full bundle; organization contexts get the flags
// stored on the membership row, verbatim.
type PermissionSet struct {
	WriteOffDrugs    bool `json:"write_off_drugs"`
	ManageMembers    bool `json:"manage_members"`
	ViewAllData      bool `json:"view_all_data"`
	DiagnosePatients bool `json:"diagnose_patients"`
	DispenseDrugs    bool `json:"dispense_drugs"`
	ManageInventory  bool `json:"manage_inventory"`
	ViewReports      bool `json:"view_reports"`
}

// FullAccess is the bundle granted to every individual context and to
// organization admins on creation.
func FullAccess() PermissionSet {
	return PermissionSet{
		WriteOffDrugs:    true,
		ManageMembers:    true,
		ViewAllData:      true,
		DiagnosePatients: true,
		DispenseDrugs:    true,
		ManageInventory:  true,
		ViewReports:      true,
	}
}

// Has reports whether the set grants the named permission. Only the six
// actionable flags are consumable; view_all_data is stored and round-trips
// through the API but no check consumes it. Unknown permissions are never
// granted.
func (p PermissionSet) Has(perm Permission) bool {
	switch perm {
	case PermWriteOffDrugs:
		return p.WriteOffDrugs
	case PermManageMembers:
		return p.ManageMembers
	case PermManageInventory:
		return p.ManageInventory
	case PermDiagnosePatients:
		return p.DiagnosePatients
	case PermDispenseDrugs:
		return p.DispenseDrugs
	case PermViewReports:
		return p.ViewReports
	}
	return false
}

// Decision is the tri-state outcome of a permission check.
type Decision int

const (
	// Indeterminate means the membership backing the check could not be
	// loaded; callers must fail closed and distinguish this from Deny.
	Indeterminate Decision = iota
	Allow
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	}
	return "indeterminate"
}
