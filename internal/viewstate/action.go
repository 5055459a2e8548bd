package viewstate

// Trigger names a kind of user input.
type Trigger string

const (
	TriggerDataset      Trigger = "dataset"
	TriggerColorField   Trigger = "color-field"
	TriggerPalette      Trigger = "palette"
	TriggerShowSites    Trigger = "show-sites"
	TriggerMarkerSize   Trigger = "marker-size"
	TriggerSelect       Trigger = "select"
	TriggerGridLayer    Trigger = "grid-layer"
	TriggerGridVariable Trigger = "grid-variable"
	TriggerShowGrid     Trigger = "show-grid"
	TriggerLogScale     Trigger = "log-scale"
	TriggerWeight       Trigger = "weight"
	TriggerRecompute    Trigger = "recompute"
	TriggerResetView    Trigger = "reset-view"
	TriggerSearch       Trigger = "search"
)

// NoField is the color field value meaning "uncolored".
const NoField = "__none__"

// Action is one user input. The concrete types below are the full set.
type Action interface {
	Trigger() Trigger
}

type (
	SelectDataset      struct{ ID string }
	SelectColorField   struct{ ID string }
	SelectPalette      struct{ ID string }
	ShowSites          struct{ On bool }
	SetMarkerSize      struct{ Size int }
	SelectFeature      struct{ Index int }
	SelectGridLayer    struct{ ID string }
	SelectGridVariable struct{ ID string }
	ShowGrid           struct{ On bool }
	SetLogScale        struct{ On bool }
	Recompute          struct{}
	ResetView          struct{}
	Search             struct{ Query string }
)

// WeightKind picks the half of a weight pair to edit.
type WeightKind string

const (
	WeightNeed        WeightKind = "need"
	WeightOpportunity WeightKind = "opp"
)

// SetWeight edits one cell of the weight table.
type SetWeight struct {
	Indicator string
	Kind      WeightKind
	Value     float64
}

func (SelectDataset) Trigger() Trigger      { return TriggerDataset }
func (SelectColorField) Trigger() Trigger   { return TriggerColorField }
func (SelectPalette) Trigger() Trigger      { return TriggerPalette }
func (ShowSites) Trigger() Trigger          { return TriggerShowSites }
func (SetMarkerSize) Trigger() Trigger      { return TriggerMarkerSize }
func (SelectFeature) Trigger() Trigger      { return TriggerSelect }
func (SelectGridLayer) Trigger() Trigger    { return TriggerGridLayer }
func (SelectGridVariable) Trigger() Trigger { return TriggerGridVariable }
func (ShowGrid) Trigger() Trigger           { return TriggerShowGrid }
func (SetLogScale) Trigger() Trigger        { return TriggerLogScale }
func (SetWeight) Trigger() Trigger          { return TriggerWeight }
func (Recompute) Trigger() Trigger          { return TriggerRecompute }
func (ResetView) Trigger() Trigger          { return TriggerResetView }
func (Search) Trigger() Trigger             { return TriggerSearch }
