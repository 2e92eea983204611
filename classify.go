package pack

import (
	"path"
	"strings"
)

// Classifier assigns an EntryType to a path. Open uses it for type
// filtering and Container.EntriesOfType for grouped iteration.
type Classifier interface {
	Classify(p Path) EntryType
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(p Path) EntryType

func (f ClassifierFunc) Classify(p Path) EntryType { return f(p) }

// DefaultClassifier classifies by the conventions the titles follow:
// database tables live under the db folder, and everything else is told
// apart by extension.
func DefaultClassifier() Classifier {
	return ClassifierFunc(classify)
}

func classify(p Path) EntryType {
	if len(p) == 0 {
		return TypeOther
	}
	if strings.EqualFold(p[0], "db") {
		return TypeDB
	}
	ext := strings.ToLower(path.Ext(p.Name()))
	if t, ok := extTypes[ext]; ok {
		return t
	}
	return TypeOther
}

var extTypes = map[string]EntryType{
	".loc": TypeLoc,

	".lua":      TypeText,
	".txt":      TypeText,
	".xml":      TypeText,
	".csv":      TypeText,
	".tsv":      TypeText,
	".inl":      TypeText,
	".json":     TypeText,
	".kv_rules": TypeText,

	".dds":  TypeImage,
	".tga":  TypeImage,
	".png":  TypeImage,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".gif":  TypeImage,

	".anim":       TypeAnim,
	".frg":        TypeAnim,
	".anim_table": TypeAnim,

	".ca_vp8": TypeVideo,
	".ivf":    TypeVideo,
}
