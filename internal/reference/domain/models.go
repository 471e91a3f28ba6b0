package domain

// Usage names a tenant-scoped table column that may point at a catalog row.
type Usage struct {
	Table  string
	Column string
}

func (u Usage) String() string { return u.Table + "." + u.Column }

var (
	SessionUsages = []Usage{
		{Table: "fee_structures", Column: "session_id"},
		{Table: "demand_bills", Column: "session_id"},
		{Table: "student_fee_discounts", Column: "session_id"},
		{Table: "student_details", Column: "session_id"},
		{Table: "fee_transactions", Column: "session_id"},
	}

	ClassUsages = []Usage{
		{Table: "student_details", Column: "class_name"},
		{Table: "fee_structures", Column: "class_name"},
	}

	// FeeTypeActiveUsages block deactivation of a fee type.
	FeeTypeActiveUsages = []Usage{
		{Table: "fee_structure_items", Column: "fee_type_id"},
	}

	// FeeTypeDeleteUsages block deletion of a fee type.
	FeeTypeDeleteUsages = []Usage{
		{Table: "fee_structure_items", Column: "fee_type_id"},
		{Table: "student_fee_discounts", Column: "fee_type_id"},
		{Table: "demand_bill_items", Column: "fee_type_id"},
		{Table: "fee_payment_details", Column: "fee_type_id"},
	}
)
