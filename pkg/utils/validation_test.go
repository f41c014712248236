package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "projectgraph/pkg/errors"
)

type sample struct {
	Name  string  `json:"name" validate:"notblank"`
	Score float64 `json:"score" validate:"gte=0,lte=1"`
	Items []item  `json:"items" validate:"dive"`
}

type item struct {
	Label string `json:"label" validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateStruct(sample{Name: "ok", Score: 0.5}, ""))
	})

	t.Run("reports json field names and constraints", func(t *testing.T) {
		err := ValidateStruct(sample{Name: "  ", Score: 2, Items: []item{{}}}, "node")
		require.Error(t, err)

		verrs, ok := apperrors.AsValidationErrors(err)
		require.True(t, ok)

		byField := map[string]string{}
		for _, e := range verrs.Errors {
			byField[e.Field()] = e.Constraint()
		}
		assert.Equal(t, "notblank", byField["node.name"])
		assert.Equal(t, "lte", byField["node.score"])
		assert.Equal(t, "required", byField["node.items[0].label"])
	})
}
