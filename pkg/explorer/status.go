package explorer

// Status summarises the explorer for a host status line.
type Status struct {
	Mode      string  `json:"mode"`
	Query     string  `json:"query,omitempty"`
	Searching bool    `json:"searching"`
	Message   string  `json:"message,omitempty"`
	DataError bool    `json:"dataError,omitempty"`
	Nodes     int     `json:"nodes"`
	Links     int     `json:"links"`
	Settled   bool    `json:"settled"`
	Framing   string  `json:"framing"`
	Zoom      float64 `json:"zoom"`
	Locked    string  `json:"locked,omitempty"`
	Hovered   string  `json:"hovered,omitempty"`
}

func (e *Explorer) buildStatus() Status {
	g := e.graphCell.Get()
	hs := e.highlightCell.Get()
	_, searching := e.tracker.Pending()
	msg := e.message
	if m := hs.Message(); m != "" {
		msg = m
	}
	return Status{
		Mode:      hs.Mode.String(),
		Query:     hs.Query,
		Searching: searching,
		Message:   msg,
		DataError: e.dataErr,
		Nodes:     g.Len(),
		Links:     len(g.Links()),
		Settled:   !e.sim.Running(),
		Framing:   e.cam.Framing().String(),
		Zoom:      e.cameraCell.Get().Zoom,
		Locked:    hs.Locked,
		Hovered:   hs.Hovered,
	}
}
