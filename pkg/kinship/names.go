package kinship

import "fmt"

var ordinalWords = map[int]string{
	1:  "first",
	2:  "second",
	3:  "third",
	4:  "fourth",
	5:  "fifth",
	6:  "sixth",
	7:  "seventh",
	8:  "eighth",
	9:  "ninth",
	10: "tenth",
}

func ordinal(n int) string {
	if word, ok := ordinalWords[n]; ok {
		return word
	}
	return fmt.Sprintf("%dth", n)
}

// ancestorName turns a generation offset into the ancestor-side term:
// 1 parent, 2 grandparent, 3 great-grandparent, 4 second great-grandparent.
func ancestorName(gen int) string {
	switch gen {
	case 1:
		return "parent"
	case 2:
		return "grandparent"
	case 3:
		return "great-grandparent"
	}
	return fmt.Sprintf("%s great-grandparent", ordinal(gen-2))
}

// descendantName is the mirror of ancestorName.
func descendantName(gen int) string {
	switch gen {
	case 1:
		return "child"
	case 2:
		return "grandchild"
	case 3:
		return "great-grandchild"
	}
	return fmt.Sprintf("%s great-grandchild", ordinal(gen-2))
}

// auntUncleName names a parent's sibling line: gen is the junior side's
// distance to the common ancestor (2 aunt/uncle, 3 great-aunt/uncle).
func auntUncleName(gen int) string {
	switch gen {
	case 2:
		return "aunt/uncle"
	case 3:
		return "great-aunt/uncle"
	}
	return fmt.Sprintf("%s great-aunt/uncle", ordinal(gen-2))
}

func nieceNephewName(gen int) string {
	switch gen {
	case 2:
		return "niece/nephew"
	case 3:
		return "great-niece/nephew"
	}
	return fmt.Sprintf("%s great-niece/nephew", ordinal(gen-2))
}

// cousinName renders the degree and removal: "first cousin",
// "second cousin once removed", "first cousin 4x removed".
func cousinName(degree, removed int) string {
	base := fmt.Sprintf("%s cousin", ordinal(degree))
	switch removed {
	case 0:
		return base
	case 1:
		return base + " once removed"
	case 2:
		return base + " twice removed"
	}
	return fmt.Sprintf("%s %dx removed", base, removed)
}
