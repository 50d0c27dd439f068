package cases

import (
	"testing"

	"courtwise/models"

	"github.com/stretchr/testify/assert"
)

var catalogue = []models.Case{
	{ID: "c1", Title: "Kesavananda Bharati v. State of Kerala", Court: "Supreme Court of India", Year: 1973, Tags: []string{"Constitutional", "Basic Structure"}},
	{ID: "c2", Title: "Maneka Gandhi v. Union of India", Court: "Supreme Court of India", Year: 1978, Summary: "Personal liberty under Article 21", Tags: []string{"Constitutional"}},
	{ID: "c3", Title: "Vishaka v. State of Rajasthan", Court: "Supreme Court of India", Year: 1997, Judges: []string{"J.S. Verma"}, Tags: []string{"Workplace"}},
	{ID: "c4", Title: "Shreya Singhal v. Union of India", Court: "Supreme Court of India", Year: 2015, Citation: "AIR 2015 SC 1523"},
	{ID: "c5", Title: "Navtej Singh Johar v. Union of India", Court: "Delhi High Court", Year: 2018},
}

func ids(cs []models.Case) []string {
	out := []string{}
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter models.CaseFilter
		want   []string
	}{
		{"empty filter keeps all", models.CaseFilter{}, []string{"c1", "c2", "c3", "c4", "c5"}},
		{"query is case insensitive", models.CaseFilter{Query: "UNION of india"}, []string{"c2", "c4", "c5"}},
		{"query matches summary", models.CaseFilter{Query: "article 21"}, []string{"c2"}},
		{"query matches judges", models.CaseFilter{Query: "verma"}, []string{"c3"}},
		{"query matches citation", models.CaseFilter{Query: "AIR 2015"}, []string{"c4"}},
		{"every term must match", models.CaseFilter{Query: "union kerala"}, []string{}},
		{"court substring", models.CaseFilter{Court: "high court"}, []string{"c5"}},
		{"year", models.CaseFilter{Year: 1997}, []string{"c3"}},
		{"tag exact", models.CaseFilter{Tag: "constitutional"}, []string{"c1", "c2"}},
		{"combined", models.CaseFilter{Query: "india", Court: "supreme", Year: 1978}, []string{"c2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(catalogue, tt.filter)))
		})
	}
}
