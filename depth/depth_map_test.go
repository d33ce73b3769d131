package depth

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float64{
		{0.5, 2},
		{-1, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Width)
	assert.Equal(t, 2, m.Height)
	assert.Equal(t, -1.0, m.MinDepth)
	assert.Equal(t, 3.0, m.MaxDepth)
	assert.Equal(t, 3.0, m.At(1, 1))

	_, err = FromRows(nil)
	assert.ErrorIs(t, err, ErrInvalidMap)

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrInvalidMap)
}

func TestMap_Validate(t *testing.T) {
	tests := []struct {
		name    string
		m       *Map
		wantErr bool
	}{
		{name: "nil", m: nil, wantErr: true},
		{name: "empty", m: NewMap(0, 0), wantErr: true},
		{name: "short data", m: &Map{Width: 2, Height: 2, Data: []float64{1}}, wantErr: true},
		{name: "min above max", m: &Map{Width: 1, Height: 1, Data: []float64{1}, MinDepth: 2, MaxDepth: 1}, wantErr: true},
		{name: "ok", m: &Map{Width: 1, Height: 1, Data: []float64{1}, MinDepth: 1, MaxDepth: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMap)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMap_Normalize(t *testing.T) {
	m, err := FromRows([][]float64{{2, 4, 6}})
	require.NoError(t, err)
	m.Normalize()
	assert.InDeltaSlice(t, []float64{0, 0.5, 1}, m.Data, 1e-12)
	assert.Equal(t, 0.0, m.MinDepth)
	assert.Equal(t, 1.0, m.MaxDepth)

	flat, err := FromRows([][]float64{{7, 7}, {7, 7}})
	require.NoError(t, err)
	flat.Normalize()
	assert.Equal(t, []float64{0, 0, 0, 0}, flat.Data)
	assert.Equal(t, flat.MinDepth, flat.MaxDepth)
}

func TestMap_Gray(t *testing.T) {
	m, err := FromRows([][]float64{{0, 1}})
	require.NoError(t, err)
	g := m.Gray()
	assert.Equal(t, uint8(255), g.GrayAt(0, 0).Y, "near is bright")
	assert.Equal(t, uint8(0), g.GrayAt(1, 0).Y, "far is dark")

	back := FromGray(g)
	assert.InDeltaSlice(t, m.Data, back.Data, 1e-12)
}

func TestMap_GrayNaNIsFar(t *testing.T) {
	m := NewMap(3, 1)
	copy(m.Data, []float64{0, math.NaN(), 1})
	m.MinDepth, m.MaxDepth = 0, 1

	g := m.Gray()
	assert.Equal(t, []uint8{255, 0, 0}, g.Pix)
}

func TestMap_JSON(t *testing.T) {
	m, err := FromRows([][]float64{{0, 0.25}, {0.5, 1}})
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[[0,0.25],[0.5,1]],"width":2,"height":2,"minDepth":0,"maxDepth":1}`, string(data))

	var got Map
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *m, got)

	// minDepth/maxDepth 缺省时用数据范围
	require.NoError(t, json.Unmarshal([]byte(`{"data":[[3,5]]}`), &got))
	assert.Equal(t, 3.0, got.MinDepth)
	assert.Equal(t, 5.0, got.MaxDepth)

	err = json.Unmarshal([]byte(`{"data":[[3,5]],"width":3,"height":1}`), &got)
	assert.ErrorIs(t, err, ErrInvalidMap)
}
