package layout

// ChargeParams configures the many-body repulsion.
type ChargeParams struct {
	Strength float64 `json:"strength" yaml:"strength" toml:"strength"`
	// NearCenterBoost multiplies Strength for pairs touching the near-center
	// zone (radius below hub ring + NearCenterMargin).
	NearCenterBoost  float64 `json:"nearCenterBoost" yaml:"nearCenterBoost" toml:"near_center_boost"`
	NearCenterMargin float64 `json:"nearCenterMargin" yaml:"nearCenterMargin" toml:"near_center_margin"`
	DistanceMin      float64 `json:"distanceMin" yaml:"distanceMin" toml:"distance_min"`
	// DistanceMargin extends the cutoff past the leaf ring.
	DistanceMargin float64 `json:"distanceMargin" yaml:"distanceMargin" toml:"distance_margin"`
}

// LinkParams configures tier-dependent link distances.
type LinkParams struct {
	HubCategory  float64 `json:"hubCategory" yaml:"hubCategory" toml:"hub_category"`
	CategoryLeaf float64 `json:"categoryLeaf" yaml:"categoryLeaf" toml:"category_leaf"`
	Fallback     float64 `json:"fallback" yaml:"fallback" toml:"fallback"`
}

// RadialParams configures the ring springs.
type RadialParams struct {
	CategoryStrength float64 `json:"categoryStrength" yaml:"categoryStrength" toml:"category_strength"`
	LeafStrength     float64 `json:"leafStrength" yaml:"leafStrength" toml:"leaf_strength"`
	// MinPadding is the gap kept free outside the hub ring.
	MinPadding    float64 `json:"minPadding" yaml:"minPadding" toml:"min_padding"`
	FloorStrength float64 `json:"floorStrength" yaml:"floorStrength" toml:"floor_strength"`
}

// AngularParams configures sector alignment.
type AngularParams struct {
	Strength float64 `json:"strength" yaml:"strength" toml:"strength"`
	Passes   int     `json:"passes" yaml:"passes" toml:"passes"`
}

// Params configures a Simulation.
type Params struct {
	VelocityDecay float64 `json:"velocityDecay" yaml:"velocityDecay" toml:"velocity_decay"`
	AlphaDecay    float64 `json:"alphaDecay" yaml:"alphaDecay" toml:"alpha_decay"`
	AlphaMin      float64 `json:"alphaMin" yaml:"alphaMin" toml:"alpha_min"`
	CooldownTicks int     `json:"cooldownTicks" yaml:"cooldownTicks" toml:"cooldown_ticks"`
	WarmupTicks   int     `json:"warmupTicks" yaml:"warmupTicks" toml:"warmup_ticks"`

	Charge  ChargeParams  `json:"charge" yaml:"charge" toml:"charge"`
	Link    LinkParams    `json:"link" yaml:"link" toml:"link"`
	Radial  RadialParams  `json:"radial" yaml:"radial" toml:"radial"`
	Angular AngularParams `json:"angular" yaml:"angular" toml:"angular"`
}

// DefaultParams returns the tuned defaults: moderate friction, slow alpha
// decay and a generous tick budget spent entirely in cooldown.
func DefaultParams() Params {
	return Params{
		VelocityDecay: 0.3,
		AlphaDecay:    0.01,
		AlphaMin:      0.001,
		CooldownTicks: 400,
		WarmupTicks:   0,
		Charge: ChargeParams{
			Strength:         -120,
			NearCenterBoost:  1.6,
			NearCenterMargin: 40,
			DistanceMin:      1,
			DistanceMargin:   100,
		},
		Link: LinkParams{
			HubCategory:  140,
			CategoryLeaf: 160,
			Fallback:     200,
		},
		Radial: RadialParams{
			CategoryStrength: 0.5,
			LeafStrength:     0.4,
			MinPadding:       40,
			FloorStrength:    1,
		},
		Angular: AngularParams{
			Strength: 0.05,
			Passes:   5,
		},
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.VelocityDecay > 0 {
		d.VelocityDecay = p.VelocityDecay
	}
	if p.AlphaDecay > 0 {
		d.AlphaDecay = p.AlphaDecay
	}
	if p.AlphaMin > 0 {
		d.AlphaMin = p.AlphaMin
	}
	if p.CooldownTicks > 0 {
		d.CooldownTicks = p.CooldownTicks
	}
	if p.WarmupTicks > 0 {
		d.WarmupTicks = p.WarmupTicks
	}
	if p.Charge.Strength != 0 {
		d.Charge.Strength = p.Charge.Strength
	}
	if p.Charge.NearCenterBoost > 0 {
		d.Charge.NearCenterBoost = p.Charge.NearCenterBoost
	}
	if p.Charge.NearCenterMargin > 0 {
		d.Charge.NearCenterMargin = p.Charge.NearCenterMargin
	}
	if p.Charge.DistanceMin > 0 {
		d.Charge.DistanceMin = p.Charge.DistanceMin
	}
	if p.Charge.DistanceMargin > 0 {
		d.Charge.DistanceMargin = p.Charge.DistanceMargin
	}
	if p.Link.HubCategory > 0 {
		d.Link.HubCategory = p.Link.HubCategory
	}
	if p.Link.CategoryLeaf > 0 {
		d.Link.CategoryLeaf = p.Link.CategoryLeaf
	}
	if p.Link.Fallback > 0 {
		d.Link.Fallback = p.Link.Fallback
	}
	if p.Radial.CategoryStrength > 0 {
		d.Radial.CategoryStrength = p.Radial.CategoryStrength
	}
	if p.Radial.LeafStrength > 0 {
		d.Radial.LeafStrength = p.Radial.LeafStrength
	}
	if p.Radial.MinPadding > 0 {
		d.Radial.MinPadding = p.Radial.MinPadding
	}
	if p.Radial.FloorStrength > 0 {
		d.Radial.FloorStrength = p.Radial.FloorStrength
	}
	if p.Angular.Strength > 0 {
		d.Angular.Strength = p.Angular.Strength
	}
	if p.Angular.Passes > 0 {
		d.Angular.Passes = p.Angular.Passes
	}
	if d.Angular.Passes > 5 {
		d.Angular.Passes = 5
	}
	return d
}
