package sitemap

// Include is the single inclusion gate: a route is part of the sitemap iff it
// carries metadata.
func (e *Engine) Include(route Route) bool {
	if route.Sitemap == nil {
		e.log.Debug("no sitemap metadata, not including route", "uri", route.URI, "controller", route.ControllerID)
		return false
	}
	return true
}
