package engine

// FollowMode says whether the viewport tracks new messages automatically or
// holds the user's reading position.
type FollowMode int

const (
	FollowAuto FollowMode = iota
	FollowHeld
)

func (m FollowMode) String() string {
	if m == FollowHeld {
		return "held"
	}
	return "auto"
}

// ScrollMetrics is a sample of the scroll container, in whatever unit the
// presentation layer uses (pixels, terminal rows).
type ScrollMetrics struct {
	ScrollTop    int
	ScrollHeight int
	ClientHeight int
}

// DistanceFromBottom is how far the viewport sits above the newest content.
func (m ScrollMetrics) DistanceFromBottom() int {
	return m.ScrollHeight - m.ClientHeight - m.ScrollTop
}

// ScrollFollowPolicy decides between auto-scrolling and holding position.
// It is a pure function of the latest metrics sample and the previous mode;
// no deeper history is kept.
type ScrollFollowPolicy struct {
	mode FollowMode
}

// NewScrollFollowPolicy starts in auto mode: the initial load always
// performs one scroll-to-bottom since there is no prior reading position.
func NewScrollFollowPolicy() *ScrollFollowPolicy {
	return &ScrollFollowPolicy{mode: FollowAuto}
}

func (p *ScrollFollowPolicy) Mode() FollowMode { return p.mode }

// Observe folds a scroll sample into the mode: more than a quarter of a
// viewport above the bottom means the user is reading backlog, so new
// content must not yank the position away.
func (p *ScrollFollowPolicy) Observe(m ScrollMetrics) FollowMode {
	if 4*m.DistanceFromBottom() > m.ClientHeight {
		p.mode = FollowHeld
	} else {
		p.mode = FollowAuto
	}
	return p.mode
}

// OnNewContent reports whether arriving content should scroll the viewport
// to the bottom. In held mode the caller surfaces a "new messages"
// affordance instead.
func (p *ScrollFollowPolicy) OnNewContent() bool {
	return p.mode == FollowAuto
}

// JumpToNewest is the explicit user action on the affordance: it forces
// auto mode and the caller performs one immediate scroll-to-bottom.
func (p *ScrollFollowPolicy) JumpToNewest() {
	p.mode = FollowAuto
}
