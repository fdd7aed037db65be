package format

import "sub-renamer/internal/node"

// star дописывает '*' к имени и отбрасывает перечисленные имена.
func star(drop ...string) node.Renamer {
	return node.RenamerFunc(func(name, _ string) (string, bool) {
		for _, d := range drop {
			if name == d {
				return "", false
			}
		}
		return name + "*", true
	})
}
