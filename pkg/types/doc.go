// Package types defines the kindstore schema model: field types, kinds and
// their registry, entity instances with dirty tracking, the backend-neutral
// Query, the Adapter contract implemented by storage backends, Config, and
// the standard errors.
//
// A kind is declared once at process initialization:
//
//	reg := types.NewRegistry()
//	ratings, err := types.DefineKind("WebAppRating").
//	    Field("app_id", types.Text(types.Indexed(), types.Unique())).
//	    Field("app_name", types.Text(types.Unique())).
//	    Field("rating", types.JSON(types.AllowEmpty())).
//	    Register(reg)
//
// The returned *Kind is the handle used by managers and adapters.
package types
