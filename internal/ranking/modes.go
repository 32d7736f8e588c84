package ranking

// Mode identifies how the active weight vector (or ordering) for a list
// view is resolved. Switching modes is a pure recomputation on the client's
// current view; nothing is persisted.
type Mode string

const (
	// ModeCreator uses the weights stored on the list by its owner.
	ModeCreator Mode = "creator"
	// ModeViewer uses the signed-in viewer's preference weights.
	ModeViewer Mode = "viewer"
	// ModeEven forces all four weights to 1.0.
	ModeEven Mode = "even"
	// ModeCustom uses the manual per-entry positions instead of scores.
	// Only offered when the list has custom ordering enabled.
	ModeCustom Mode = "custom"
)

// InitialMode is the mode a list view starts in: custom when the list has
// the custom-order flag enabled, otherwise creator.
func InitialMode(customOrder bool) Mode {
	if customOrder {
		return ModeCustom
	}
	return ModeCreator
}

// AvailableModes lists the modes that may be offered for a list view.
// Viewer mode requires a signed-in viewer, custom mode requires the list's
// custom-order flag.
func AvailableModes(customOrder, signedIn bool) []Mode {
	modes := []Mode{ModeCreator}
	if signedIn {
		modes = append(modes, ModeViewer)
	}
	modes = append(modes, ModeEven)
	if customOrder {
		modes = append(modes, ModeCustom)
	}
	return modes
}

// ResolveWeights picks the weight vector for a weight-driven mode.
// viewerPrefs is nil when no viewer is signed in; viewer mode is then
// unavailable and ok is false. ModeCustom carries no weights and also
// reports false; callers dispatch to SortCustom instead.
func ResolveWeights(mode Mode, creator Weights, viewerPrefs *Weights) (Weights, bool) {
	switch mode {
	case ModeCreator:
		return creator, true
	case ModeViewer:
		if viewerPrefs == nil {
			return Weights{}, false
		}
		return *viewerPrefs, true
	case ModeEven:
		return EvenWeights(), true
	default:
		return Weights{}, false
	}
}
