package views

import "loanportal/internal/models"

// Column is one cell of a list table or detail panel.
type Column struct {
	Name   string
	Header string
	Format string // "", "currency", "date", "datetime", "phone"
}

// Cell formats one entity value for the column.
func Cell(e models.Entity, c Column) string {
	v, ok := e[c.Name]
	if !ok || v == nil {
		return ""
	}
	switch c.Format {
	case "currency":
		return Currency(v)
	case "date":
		return Date(v)
	case "datetime":
		return DateTime(v)
	case "phone":
		return Phone(v)
	}
	return models.Text(v)
}

var listColumns = map[models.Kind][]Column{
	models.KindAccount: {
		{Name: "company_name", Header: "Name"},
		{Name: "account_type", Header: "Type"},
		{Name: "primary_email", Header: "Email"},
		{Name: "cell_phone", Header: "Phone", Format: "phone"},
		{Name: "city", Header: "City"},
		{Name: "status", Header: "Status"},
	},
	models.KindContact: {
		{Name: "first_name", Header: "First name"},
		{Name: "last_name", Header: "Last name"},
		{Name: "email", Header: "Email"},
		{Name: "phone", Header: "Phone", Format: "phone"},
		{Name: "contact_type", Header: "Type"},
	},
	models.KindLoan: {
		{Name: "contract_number", Header: "Contract"},
		{Name: "loan_type", Header: "Type"},
		{Name: "status", Header: "Status"},
		{Name: "loan_amount", Header: "Amount", Format: "currency"},
		{Name: "principal_balance", Header: "Balance", Format: "currency"},
		{Name: "next_payment_date", Header: "Next payment", Format: "date"},
	},
	models.KindAsset: {
		{Name: "Year", Header: "Year"},
		{Name: "Make", Header: "Make"},
		{Name: "Model", Header: "Model"},
		{Name: "VIN", Header: "VIN"},
		{Name: "status", Header: "Status"},
		{Name: "value", Header: "Value", Format: "currency"},
	},
	models.KindCase: {
		{Name: "subject", Header: "Subject"},
		{Name: "case_type", Header: "Type"},
		{Name: "status", Header: "Status"},
		{Name: "priority", Header: "Priority"},
		{Name: "due_date", Header: "Due", Format: "date"},
	},
}

var detailExtra = map[models.Kind][]Column{
	models.KindAccount: {
		{Name: "home_phone", Header: "Home phone", Format: "phone"},
		{Name: "work_phone", Header: "Work phone", Format: "phone"},
		{Name: "street_address", Header: "Street"},
		{Name: "state_province", Header: "State"},
		{Name: "postal_code", Header: "Postal code"},
		{Name: "country", Header: "Country"},
		{Name: "notes", Header: "Notes"},
		{Name: "created_at", Header: "Created", Format: "datetime"},
	},
	models.KindContact: {
		{Name: "created_at", Header: "Created", Format: "datetime"},
	},
	models.KindLoan: {
		{Name: "interest_rate", Header: "Interest rate"},
		{Name: "loan_term", Header: "Term"},
		{Name: "monthly_payment", Header: "Monthly payment", Format: "currency"},
		{Name: "past_due_amount", Header: "Past due", Format: "currency"},
		{Name: "past_due_fees", Header: "Past due fees", Format: "currency"},
		{Name: "financial_institution", Header: "Financial institution"},
	},
	models.KindAsset: {
		{Name: "mileage", Header: "Mileage"},
		{Name: "color", Header: "Color"},
		{Name: "condition", Header: "Condition"},
		{Name: "license_plate", Header: "License plate"},
		{Name: "purchase_price", Header: "Purchase price", Format: "currency"},
		{Name: "purchase_date", Header: "Purchased", Format: "date"},
		{Name: "insurance_company", Header: "Insurer"},
		{Name: "insurance_expiry", Header: "Insurance expiry", Format: "date"},
		{Name: "location", Header: "Location"},
	},
	models.KindCase: {
		{Name: "description", Header: "Description"},
		{Name: "assigned_team", Header: "Team"},
		{Name: "category", Header: "Category"},
		{Name: "resolution", Header: "Resolution"},
		{Name: "created_at", Header: "Opened", Format: "datetime"},
	},
}

func ListColumns(kind models.Kind) []Column { return listColumns[kind] }

// DetailColumns are the list columns followed by the detail-only ones.
func DetailColumns(kind models.Kind) []Column {
	out := append([]Column{}, listColumns[kind]...)
	return append(out, detailExtra[kind]...)
}

// Input is one control on a create/edit form.
type Input struct {
	Name    string
	Label   string
	Type    string // text, number, date, email, textarea, select, entity
	Options []string
	// Source names the dropdown list for entity selects.
	Source   models.Kind
	Required bool
}

var (
	loanStatuses   = []string{"Active", "Paid Off", "Delinquent", "Default", "Closed"}
	assetStatuses  = []string{"Active", "Inactive", "Sold", "Repossessed"}
	casePriorities = []string{"Low", "Medium", "High", "Urgent"}
	caseStatuses   = []string{"New", "Open", "In Progress", "Resolved", "Closed"}
)

var formInputs = map[models.Kind][]Input{
	models.KindAccount: {
		{Name: "company_name", Label: "Name", Type: "text", Required: true},
		{Name: "account_type", Label: "Type", Type: "text"},
		{Name: "primary_email", Label: "Email", Type: "email"},
		{Name: "home_phone", Label: "Home phone", Type: "text"},
		{Name: "cell_phone", Label: "Cell phone", Type: "text"},
		{Name: "work_phone", Label: "Work phone", Type: "text"},
		{Name: "street_address", Label: "Street", Type: "text"},
		{Name: "city", Label: "City", Type: "text"},
		{Name: "state_province", Label: "State", Type: "text"},
		{Name: "postal_code", Label: "Postal code", Type: "text"},
		{Name: "country", Label: "Country", Type: "text"},
		{Name: "tags", Label: "Tags", Type: "text"},
		{Name: "notes", Label: "Notes", Type: "textarea"},
	},
	models.KindContact: {
		{Name: "first_name", Label: "First name", Type: "text", Required: true},
		{Name: "last_name", Label: "Last name", Type: "text", Required: true},
		{Name: "email", Label: "Email", Type: "email"},
		{Name: "phone", Label: "Phone", Type: "text"},
		{Name: "contact_type", Label: "Type", Type: "text"},
		{Name: "account_id", Label: "Account", Type: "entity", Source: models.KindAccount},
	},
	models.KindLoan: {
		{Name: "contract_number", Label: "Contract number", Type: "text", Required: true},
		{Name: "loan_type", Label: "Type", Type: "text"},
		{Name: "status", Label: "Status", Type: "select", Options: loanStatuses},
		{Name: "account_id", Label: "Account", Type: "entity", Source: models.KindAccount},
		{Name: "contact_id", Label: "Contact", Type: "entity", Source: models.KindContact},
		{Name: "loan_amount", Label: "Amount", Type: "number"},
		{Name: "interest_rate", Label: "Interest rate", Type: "number"},
		{Name: "loan_term", Label: "Term (months)", Type: "number"},
		{Name: "monthly_payment", Label: "Monthly payment", Type: "number"},
		{Name: "principal_balance", Label: "Principal balance", Type: "number"},
		{Name: "next_payment_date", Label: "Next payment", Type: "date"},
	},
	models.KindAsset: {
		{Name: "Year", Label: "Year", Type: "number"},
		{Name: "Make", Label: "Make", Type: "text"},
		{Name: "Model", Label: "Model", Type: "text"},
		{Name: "VIN", Label: "VIN", Type: "text"},
		{Name: "mileage", Label: "Mileage", Type: "number"},
		{Name: "color", Label: "Color", Type: "text"},
		{Name: "status", Label: "Status", Type: "select", Options: assetStatuses},
		{Name: "account_id", Label: "Account", Type: "entity", Source: models.KindAccount},
		{Name: "value", Label: "Value", Type: "number"},
		{Name: "purchase_price", Label: "Purchase price", Type: "number"},
		{Name: "loan_balance", Label: "Loan balance", Type: "number"},
		{Name: "condition", Label: "Condition", Type: "text"},
		{Name: "location", Label: "Location", Type: "text"},
		{Name: "license_plate", Label: "License plate", Type: "text"},
		{Name: "insurance_company", Label: "Insurer", Type: "text"},
		{Name: "purchase_date", Label: "Purchased", Type: "date"},
		{Name: "registration_date", Label: "Registered", Type: "date"},
		{Name: "insurance_expiry", Label: "Insurance expiry", Type: "date"},
		{Name: "notes", Label: "Notes", Type: "textarea"},
	},
	models.KindCase: {
		{Name: "subject", Label: "Subject", Type: "text", Required: true},
		{Name: "description", Label: "Description", Type: "textarea"},
		{Name: "case_type", Label: "Type", Type: "text"},
		{Name: "priority", Label: "Priority", Type: "select", Options: casePriorities},
		{Name: "status", Label: "Status", Type: "select", Options: caseStatuses},
		{Name: "account_id", Label: "Account", Type: "entity", Source: models.KindAccount},
		{Name: "contact_id", Label: "Contact", Type: "entity", Source: models.KindContact},
		{Name: "loan_id", Label: "Loan", Type: "entity", Source: models.KindLoan},
		{Name: "assigned_team", Label: "Team", Type: "text"},
		{Name: "due_date", Label: "Due", Type: "date"},
		{Name: "category", Label: "Category", Type: "text"},
		{Name: "resolution", Label: "Resolution", Type: "textarea"},
		{Name: "internal_notes", Label: "Internal notes", Type: "textarea"},
	},
}

func FormInputs(kind models.Kind) []Input { return formInputs[kind] }
