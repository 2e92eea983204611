package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want EntryType
	}{
		{`db\units_tables\data`, TypeDB},
		{`DB\units_tables\data`, TypeDB},
		{`text\localisation.loc`, TypeLoc},
		{`scripts\init.lua`, TypeText},
		{`readme.txt`, TypeText},
		{`prefs\input.kv_rules`, TypeText},
		{`ui\skins\default.dds`, TypeImage},
		{`ui\portrait.PNG`, TypeImage},
		{`anims\walk.anim`, TypeAnim},
		{`anims\tables\battle.anim_table`, TypeAnim},
		{`movies\intro.ca_vp8`, TypeVideo},
		{`movies\logo.ivf`, TypeVideo},
		{`models\unit.rigid_model_v2`, TypeOther},
		{`noextension`, TypeOther},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, classify(ParsePath(tc.path)))
		})
	}
}

func TestClassifierFunc(t *testing.T) {
	t.Parallel()

	cl := ClassifierFunc(func(p Path) EntryType {
		if p.Name() == "special" {
			return TypeDB
		}
		return TypeOther
	})
	assert.Equal(t, TypeDB, cl.Classify(ParsePath(`dir\special`)))
	assert.Equal(t, TypeOther, cl.Classify(ParsePath(`dir\normal`)))
}
