package via

import "slices"

// LabelCount is the number of regions carrying one label.
type LabelCount struct {
	Name  string
	Count int
}

// Summary describes the contents of a project without converting it.
type Summary struct {
	Entries   int
	Regions   int
	Unlabeled int
	// InvalidLabels counts regions whose label is null, a number or a boolean.
	InvalidLabels int
	// Labels is ordered by first appearance.
	Labels []LabelCount
}

// Summarize counts entries, regions and labels of p.
func Summarize(p *Project) Summary {
	var s Summary
	if p == nil {
		return s
	}

	index := make(map[string]int)
	for i := range p.Entries {
		s.Entries++
		for j := range p.Entries[i].Regions {
			region := &p.Entries[i].Regions[j]
			s.Regions++

			if region.InvalidLabel != "" {
				s.InvalidLabels++
				continue
			}
			if region.Label == nil {
				s.Unlabeled++
				continue
			}

			name := *region.Label
			if k, ok := index[name]; ok {
				s.Labels[k].Count++
				continue
			}
			index[name] = len(s.Labels)
			s.Labels = append(s.Labels, LabelCount{Name: name, Count: 1})
		}
	}

	return s
}

// Unknown returns the labels of s that are not in known, in summary order.
func (s Summary) Unknown(known []string) []string {
	var out []string
	for _, lc := range s.Labels {
		if !slices.Contains(known, lc.Name) {
			out = append(out, lc.Name)
		}
	}
	return out
}
