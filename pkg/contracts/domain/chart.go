package domain

// ChartRequest selects the measurement slice a control chart is built from
type ChartRequest struct {
	PartNumber string `json:"part_number" validate:"required"`
	Parameter  string `json:"parameter" validate:"required"`
	Month      Month  `json:"month"`
}

// Subgroup is one consecutive bucket of measurements
type Subgroup struct {
	Index int     `json:"index"`
	Size  int     `json:"size"`
	Mean  float64 `json:"xbar"`
	Range float64 `json:"range"`
}

// CapabilityStatus tells whether CPK could be computed
type CapabilityStatus string

const (
	CapabilityComputed            CapabilityStatus = "computed"
	CapabilityNotComputable       CapabilityStatus = "not_computable"
	CapabilityLimitsNotConfigured CapabilityStatus = "limits_not_configured"
)

// Capability is the process capability result. CPU, CPL and CPK are only
// set when Status is CapabilityComputed.
type Capability struct {
	Status CapabilityStatus `json:"status"`
	Limits SpecLimits       `json:"limits"`
	CPU    *float64         `json:"cpu,omitempty"`
	CPL    *float64         `json:"cpl,omitempty"`
	CPK    *float64         `json:"cpk,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// ControlChart is the computed X-bar/R series with its statistics
type ControlChart struct {
	Request      ChartRequest `json:"request"`
	ModuleName   string       `json:"module_name"`
	SampleSize   int          `json:"sample_size"`
	SubgroupSize int          `json:"subgroup_size"`
	Subgroups    []Subgroup   `json:"subgroups"`
	Mean         float64      `json:"mean"`
	StdDev       float64      `json:"std_dev"`
	UCL          float64      `json:"ucl"`
	LCL          float64      `json:"lcl"`
	RCenter      float64      `json:"r_center"`
	Capability   Capability   `json:"capability"`
}

// ParameterSelection lists the months of one parameter that hold enough
// data to chart
type ParameterSelection struct {
	Parameter string  `json:"parameter"`
	Months    []Month `json:"months"`
}

// PartNumberSelection is a chartable part number with its parameters
type PartNumberSelection struct {
	PartNumber string               `json:"part_number"`
	ModuleName string               `json:"module_name"`
	Label      string               `json:"label"`
	Records    int                  `json:"records"`
	Parameters []ParameterSelection `json:"parameters"`
}
