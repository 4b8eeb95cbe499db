package timecontrol

// FieldType tells a settings form how to render a field
type FieldType string

// Field types
const (
	FieldTime   FieldType = "time"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
)

// Field describes one configurable parameter of a protocol
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
}

var mainField = Field{
	Name:        "main",
	Type:        FieldTime,
	Label:       "Main Time",
	Description: "The initial allotted time for a player to make moves without any additional constraints.",
}

// Fields lists the parameters the protocol of kind reads, in display order.
func Fields(kind Kind) []Field {
	switch kind {
	case Increment:
		return []Field{
			mainField,
			{
				Name:  "increment",
				Type:  FieldTime,
				Label: "Time Increment",
				Description: "An additional amount of time added to a player's clock after each move " +
					"that took longer than the increment threshold.",
			},
			{
				Name:        "incrementThreshold",
				Type:        FieldTime,
				Label:       "Increment Threshold",
				Description: "The minimum length of a turn that earns the increment.",
			},
		}
	case Byoyomi:
		return []Field{
			mainField,
			{
				Name:  "periodTime",
				Type:  FieldTime,
				Label: "Time/Period",
				Description: "The time given for each period after the main time runs out. A period " +
					"is only consumed when it runs out completely.",
			},
			{
				Name:        "periods",
				Type:        FieldNumber,
				Label:       "Periods",
				Description: "The number of periods. The clock stops when all periods have been used up.",
			},
			{
				Name:        "byoyomiResetOnResume",
				Type:        FieldBool,
				Label:       "Reset Period Each Turn",
				Description: "When activated, the period time is refilled every time the clock resumes in byoyomi.",
			},
		}
	case Yingshi:
		return []Field{
			mainField,
			{
				Name:        "penaltyTime",
				Type:        FieldTime,
				Label:       "Penalty Time",
				Description: "The time of one penalty. Once the main time has elapsed, penalty time is used.",
			},
			{
				Name:        "maxPenalties",
				Type:        FieldNumber,
				Label:       "Max Penalties",
				Description: "The maximum number of penalties. The clock stops when the maximum is reached.",
			},
		}
	default:
		return []Field{mainField}
	}
}
