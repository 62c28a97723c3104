package mask

// WellMasks bundles the photometry masks for one well, all positioned in a
// shared local window. The button sits at the window center; the chamber
// masks are offset by the stored chamber-minus-button delta, so the geometry
// stays correct even when the two centers do not coincide.
//
// ChamberNoButton (the chamber disk minus the button disk) serves double
// duty: it is the chamber foreground and the button background. The region
// between the button and the chamber wall is common background for both
// measurements.
type WellMasks struct {
	Side            int
	ButtonFG        *Mask // Signal disk, 0.9 x button radius
	ChamberNoButton *Mask // Chamber FG and button BG
	ChamberBG       *Mask // Annulus outside the chamber wall
}

// ForWell builds the photometry masks for one well. dx, dy is the chamber
// center minus the button center in pixels. The window side is
// 4*chamberRadius+1, keeping the full chamber background annulus inside the
// window for any plausible offset.
func ForWell(buttonRadius, chamberRadius, dx, dy int) *WellMasks {
	side := 4*chamberRadius + 1
	bc := float64(side / 2)
	cx := bc + float64(dx)
	cy := bc + float64(dy)

	buttonDisk := Disk(side, bc, bc, float64(buttonRadius))
	chamberDisk := Disk(side, cx, cy, float64(chamberRadius))

	return &WellMasks{
		Side:            side,
		ButtonFG:        Disk(side, bc, bc, 0.9*float64(buttonRadius)),
		ChamberNoButton: Subtract(chamberDisk, buttonDisk),
		ChamberBG:       Annulus(side, cx, cy, 1.1*float64(chamberRadius), 1.3*float64(chamberRadius)),
	}
}
