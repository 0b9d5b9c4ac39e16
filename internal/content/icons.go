package content

import "strings"

// IconName is a key into the closed icon registry the site renders.
type IconName string

const (
	IconBrainCircuit IconName = "BrainCircuit"
	IconLayers       IconName = "Layers"
	IconDatabase     IconName = "Database"
	IconServer       IconName = "Server"
	IconCode2        IconName = "Code2"
	IconShieldCheck  IconName = "ShieldCheck"

	DefaultIcon = IconBrainCircuit
)

var iconRegistry = []IconName{
	IconBrainCircuit,
	IconLayers,
	IconDatabase,
	IconServer,
	IconCode2,
	IconShieldCheck,
}

// Icons lists the registry in the order the admin selector shows it.
func Icons() []IconName {
	out := make([]IconName, len(iconRegistry))
	copy(out, iconRegistry)
	return out
}

func (n IconName) Known() bool {
	for _, icon := range iconRegistry {
		if icon == n {
			return true
		}
	}
	return false
}

// ResolveIcon maps a stored name to a registered icon, falling back to
// DefaultIcon for anything unknown.
func ResolveIcon(name string) IconName {
	candidate := IconName(strings.TrimSpace(name))
	if candidate.Known() {
		return candidate
	}
	return DefaultIcon
}
