// This file contains the logic for parsing HCL dtype keyword expressions
// (e.g., `int`, `class_label`) into feature dtypes.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/features"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToDType converts an HCL type keyword into a features.DType. A nil
// or null expression yields def.
func typeExprToDType(ctx context.Context, expr hcl.Expression, def features.DType) (features.DType, error) {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return def, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return "", fmt.Errorf("invalid dtype keyword: traversal path is not a single identifier")
		}
		rootName := v.Traversal.RootName()
		logger.Debug("Parsing dtype keyword.", "keyword", rootName)
		return features.ParseDType(rootName)

	case *hclsyntax.TemplateExpr, *hclsyntax.LiteralValueExpr:
		// Quoted keywords ("int") are accepted too.
		val, diags := v.Value(nil)
		if diags.HasErrors() {
			return "", diags
		}
		if val.IsNull() {
			return def, nil
		}
		if !val.Type().Equals(cty.String) {
			return "", fmt.Errorf("dtype must be a keyword or string, got %s", val.Type().FriendlyName())
		}
		return features.ParseDType(val.AsString())

	default:
		// Missing optional attributes are decoded as a static null expression.
		val, diags := expr.Value(nil)
		if !diags.HasErrors() && val.IsNull() {
			return def, nil
		}
		return "", fmt.Errorf("unsupported expression for dtype: %T", v)
	}
}
