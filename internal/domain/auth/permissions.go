package auth

const (
	PermEmployeesRead    = "core.employees.read"
	PermEmployeesWrite   = "core.employees.write"
	PermPayGroupsRead    = "core.paygroups.read"
	PermPayGroupsWrite   = "core.paygroups.write"
	PermJurisdictionRead = "payroll.jurisdictions.read"
	PermPayrollRead      = "payroll.read"
	PermPayrollRun       = "payroll.run"
	PermPayrollSubmit    = "payroll.submit"
	PermPayrollApprove   = "payroll.approve"
	PermPayslipsRead     = "payroll.payslips.read"
	PermAuditRead        = "audit.read"
	PermSystemAdmin      = "admin.system"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermPayGroupsRead,
	PermPayGroupsWrite,
	PermJurisdictionRead,
	PermPayrollRead,
	PermPayrollRun,
	PermPayrollSubmit,
	PermPayrollApprove,
	PermPayslipsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleViewer: {
		PermEmployeesRead,
		PermPayGroupsRead,
		PermJurisdictionRead,
		PermPayrollRead,
	},
	RoleApprover: {
		PermEmployeesRead,
		PermPayGroupsRead,
		PermJurisdictionRead,
		PermPayrollRead,
		PermPayrollApprove,
		PermPayslipsRead,
	},
	RolePayrollAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermPayGroupsRead,
		PermPayGroupsWrite,
		PermJurisdictionRead,
		PermPayrollRead,
		PermPayrollRun,
		PermPayrollSubmit,
		PermPayslipsRead,
		PermAuditRead,
	},
	RoleSystemAdmin: {
		PermSystemAdmin,
	},
}
