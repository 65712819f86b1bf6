package mp4

import "strings"

// Dash-atom plumbing shared by every MusicBrainz/ReplayGain/ISRC/Publisher/
// Remixer/InitialKey/Conductor field (spec §4.6 "Dash atom semantics"). A
// "----" annotation box carries mean (vendor namespace), name (tag key),
// and one data payload, in that order.

const appleITunesMean = "com.apple.iTunes"

// findDashAtom returns the "----" annotation box under ilst whose mean and
// name (case-insensitive on name, per spec) match, or nil.
func findDashAtom(ilst *Box, mean, name string) *Box {
	for _, child := range ilst.Children {
		if child.Type() != TypeDash {
			continue
		}
		m, n := dashMeanName(child)
		if m == mean && strings.EqualFold(n, name) {
			return child
		}
	}
	return nil
}

// dashMeanName extracts the mean/name text from a "----" box's mean/name
// children.
func dashMeanName(dash *Box) (mean, name string) {
	for _, c := range dash.Children {
		switch c.Type() {
		case TypeMean:
			if c.AppleAdditionalInfo != nil {
				mean = c.AppleAdditionalInfo.Text
			}
		case TypeName:
			if c.AppleAdditionalInfo != nil {
				name = c.AppleAdditionalInfo.Text
			}
		}
	}
	return mean, name
}

// dashDataText returns the text of a dash atom's data child, or "".
func dashDataText(dash *Box) string {
	for _, c := range dash.Children {
		if c.Type() == TypeData && c.AppleData != nil {
			return string(c.AppleData.Data)
		}
	}
	return ""
}

// getDashText reads the dash atom (mean, name)'s data payload as text, or
// "" if no such atom exists.
func getDashText(ilst *Box, mean, name string) string {
	dash := findDashAtom(ilst, mean, name)
	if dash == nil {
		return ""
	}
	return dashDataText(dash)
}

// setDashText writes value into the dash atom (mean, name)'s data payload,
// creating the mean/name/data triple if absent, or removing the whole
// annotation if value is empty (spec §4.6 writer rule).
func setDashText(ilst *Box, mean, name, value string) {
	dash := findDashAtom(ilst, mean, name)
	if value == "" {
		if dash != nil {
			ilst.RemoveChild(dash)
		}
		return
	}
	if dash != nil {
		for _, c := range dash.Children {
			if c.Type() == TypeData && c.AppleData != nil {
				c.AppleData.Data = []byte(value)
				return
			}
		}
		dash.Children = append(dash.Children, newDataBox(ContainsText, []byte(value)))
		return
	}
	ilst.Children = append(ilst.Children, newDashAnnotation(mean, name, value))
}

// newDashAnnotation builds a fresh "----" box with mean/name/data children.
func newDashAnnotation(mean, name, value string) *Box {
	return &Box{
		Header: Header{Type: TypeDash},
		Children: []*Box{
			newAdditionalInfoBox(TypeMean, mean),
			newAdditionalInfoBox(TypeName, name),
			newDataBox(ContainsText, []byte(value)),
		},
	}
}

func newAdditionalInfoBox(t BoxType, text string) *Box {
	return &Box{
		Header:              Header{Type: t},
		AppleAdditionalInfo: &AppleAdditionalInfo{Text: text},
	}
}

func newDataBox(flags AppleDataFlags, data []byte) *Box {
	return &Box{
		Header:    Header{Type: TypeData},
		AppleData: &AppleData{Flags: flags, Data: data},
	}
}
