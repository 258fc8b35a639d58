package builder

import (
	"fmt"
	"maps"
	"net/http"
	"reflect"

	"dario.cat/mergo"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// referenceTypes are replaced wholesale when a later layer sets them, never
// merged through.
var referenceTypes = map[reflect.Type]bool{
	reflect.TypeOf((*cloud.Token)(nil)):                  true,
	reflect.TypeOf((*cloud.InterceptorChain)(nil)):       true,
	reflect.TypeOf((*cloud.MetricsCollector)(nil)):       true,
	reflect.TypeOf((*http.Client)(nil)):                  true,
	reflect.TypeOf((*cloud.Logger)(nil)).Elem():          true,
	reflect.TypeOf((*cloud.IdentityService)(nil)).Elem(): true,
	reflect.TypeOf((*cloud.TokenCache)(nil)).Elem():      true,
}

type replaceTransformer struct{}

func (replaceTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if !referenceTypes[typ] && typ.Kind() != reflect.Func {
		return nil
	}

	return func(dst, src reflect.Value) error {
		if dst.CanSet() && !src.IsNil() {
			dst.Set(src)
		}

		return nil
	}
}

// mergeLayers merges layers left to right. Non-zero fields of a later layer
// win; zero fields never override. None of the layers is modified.
func mergeLayers(layers ...cloud.Options) (cloud.Options, error) {
	var merged cloud.Options

	for i, layer := range layers {
		merged.Headers = maps.Clone(merged.Headers)
		layer.Headers = maps.Clone(layer.Headers)

		err := mergo.Merge(&merged, layer, mergo.WithOverride, mergo.WithTransformers(replaceTransformer{}))
		if err != nil {
			return cloud.Options{}, fmt.Errorf("merging option layer %d: %w", i, err)
		}
	}

	return merged, nil
}
