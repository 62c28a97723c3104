package chip

// Built-in device presets. Radii assume the 4x objective these devices are
// normally imaged with; override via a spec file for other magnifications.

// MITOMI640Spec returns the 640-unit device (32 rows x 20 columns).
func MITOMI640Spec() *Spec {
	return &Spec{
		SpecName:      "mitomi-640",
		NumRow:        32,
		NumCol:        20,
		ButtonRadius:  28,
		ChamberRadius: 55,
		MaxIntensity:  65535,
		Description:   "640-unit button/chamber device",
	}
}

// MITOMI1568Spec returns the 1568-unit device (56 rows x 28 columns).
func MITOMI1568Spec() *Spec {
	return &Spec{
		SpecName:      "mitomi-1568",
		NumRow:        56,
		NumCol:        28,
		ButtonRadius:  20,
		ChamberRadius: 40,
		MaxIntensity:  65535,
		Description:   "1568-unit button/chamber device",
	}
}

// MITOMI4160Spec returns the high-density 4160-unit device (80 rows x 52 columns).
func MITOMI4160Spec() *Spec {
	return &Spec{
		SpecName:      "mitomi-4160",
		NumRow:        80,
		NumCol:        52,
		ButtonRadius:  12,
		ChamberRadius: 24,
		MaxIntensity:  65535,
		Description:   "high-density 4160-unit device",
	}
}
