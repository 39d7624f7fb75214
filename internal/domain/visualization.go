package domain

import "encoding/json"

// ============================================================
// Visualization: artefato renderizável devolvido junto da resposta
// ============================================================

// VisualizationTag discriminates the Visualization variant.
type VisualizationTag string

const (
	TagChart  VisualizationTag = "chart"
	TagTable  VisualizationTag = "table"
	TagNumber VisualizationTag = "number"
)

// ChartType is the chart flavour understood by the presentation surface.
type ChartType string

const (
	ChartLine ChartType = "line"
	ChartBar  ChartType = "bar"
	ChartPie  ChartType = "pie"
)

// DataPoint is one {name, value} pair of a chart series.
type DataPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Visualization is a tagged variant: chart, table or number.
// Only the fields of the active tag are populated; build it with
// NewChart, NewTable or NewNumber.
type Visualization struct {
	Tag          VisualizationTag `json:"tag"`
	Title        string           `json:"title"`
	ChartType    ChartType        `json:"chartType"`
	Data         []DataPoint      `json:"data"`
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	Value        string           `json:"value"`
	Downloadable bool             `json:"downloadable"`
}

type chartJSON struct {
	Tag          VisualizationTag `json:"tag"`
	ChartType    ChartType        `json:"chartType"`
	Title        string           `json:"title"`
	Data         []DataPoint      `json:"data"`
	Downloadable bool             `json:"downloadable"`
}

type tableJSON struct {
	Tag          VisualizationTag `json:"tag"`
	Title        string           `json:"title"`
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
	Downloadable bool             `json:"downloadable"`
}

type numberJSON struct {
	Tag   VisualizationTag `json:"tag"`
	Title string           `json:"title"`
	Value string           `json:"value"`
}

// MarshalJSON emits only the fields that belong to the active tag.
func (v Visualization) MarshalJSON() ([]byte, error) {
	switch v.Tag {
	case TagChart:
		data := v.Data
		if data == nil {
			data = []DataPoint{}
		}
		return json.Marshal(chartJSON{Tag: v.Tag, ChartType: v.ChartType, Title: v.Title, Data: data, Downloadable: v.Downloadable})
	case TagTable:
		cols, rows := v.Columns, v.Rows
		if cols == nil {
			cols = []string{}
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		return json.Marshal(tableJSON{Tag: v.Tag, Title: v.Title, Columns: cols, Rows: rows, Downloadable: v.Downloadable})
	case TagNumber:
		return json.Marshal(numberJSON{Tag: v.Tag, Title: v.Title, Value: v.Value})
	}
	return nil, &ErrValidation{Field: "tag", Message: "unknown visualization tag " + string(v.Tag)}
}

// NewChart builds a downloadable chart visualization.
func NewChart(chartType ChartType, title string, data []DataPoint) *Visualization {
	if data == nil {
		data = []DataPoint{}
	}
	return &Visualization{
		Tag:          TagChart,
		ChartType:    chartType,
		Title:        title,
		Data:         data,
		Downloadable: true,
	}
}

// NewTable builds a downloadable table visualization.
func NewTable(title string, rows *TableRows) *Visualization {
	out := &Visualization{
		Tag:          TagTable,
		Title:        title,
		Columns:      []string{},
		Rows:         []map[string]any{},
		Downloadable: true,
	}
	if rows != nil {
		if rows.Columns != nil {
			out.Columns = rows.Columns
		}
		if rows.Rows != nil {
			out.Rows = rows.Rows
		}
	}
	return out
}

// NewNumber builds a scalar visualization.
func NewNumber(title, value string) *Visualization {
	return &Visualization{
		Tag:   TagNumber,
		Title: title,
		Value: value,
	}
}
