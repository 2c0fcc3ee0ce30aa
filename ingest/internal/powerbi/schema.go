package powerbi

// Column data types accepted by push datasets.
const (
	TypeString   = "String"
	TypeInt64    = "Int64"
	TypeDouble   = "Double"
	TypeBool     = "Bool"
	TypeDatetime = "Datetime"
)

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

func cols(pairs ...string) []Column {
	out := make([]Column, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Column{Name: pairs[i], DataType: pairs[i+1]})
	}
	return out
}

// Schema returns the tables of the analytics push dataset.
func Schema() []Table {
	return []Table{
		{Name: "FactEvent", Columns: cols(
			"EventID", TypeString,
			"AgentID", TypeString,
			"FactDateKey", TypeString,
			"MetricID", TypeString,
			"Notes", TypeString,
		)},
		{Name: "DimAgent", Columns: cols(
			"AgentID", TypeString,
			"AgentName", TypeString,
			"Email", TypeString,
			"TimezoneIANA", TypeString,
			"ActiveFlag", TypeBool,
		)},
		{Name: "DimMetric", Columns: cols(
			"MetricID", TypeString,
			"MetricName", TypeString,
			"DefaultGoal", TypeInt64,
			"DefaultYellowFloorPct", TypeDouble,
		)},
		{Name: "DimDate", Columns: cols(
			"Date", TypeDatetime,
			"Year", TypeInt64,
			"Month", TypeInt64,
			"Day", TypeInt64,
			"MonthName", TypeString,
			"Quarter", TypeInt64,
			"DayOfWeek", TypeInt64,
			"DayName", TypeString,
			"IsWeekend", TypeBool,
		)},
		{Name: "DimShift", Columns: cols(
			"AgentID", TypeString,
			"LocalDate", TypeDatetime,
			"ShiftStartLocal", TypeDatetime,
			"ShiftEndLocal", TypeDatetime,
			"ShiftHours", TypeInt64,
		)},
	}
}
