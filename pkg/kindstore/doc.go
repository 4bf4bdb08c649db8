// Package kindstore persists and queries entities of registered kinds
// through a backend-neutral manager.
//
// Kinds are declared once in a types.Registry. Open attaches the backend
// named by the configuration and prepares storage for every registered kind:
//
//	reg := types.NewRegistry()
//	ratings := types.DefineKind("WebAppRating").
//		Field("app_id", types.Text(types.Indexed(), types.Unique())).
//		Field("rating", types.JSON(types.AllowEmpty())).
//		MustRegister(reg)
//
//	conn, err := kindstore.Open(types.Config{Backend: types.BackendSQLite, DataDir: dir}, reg)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	kindstore.SetDefault(conn)
//
//	e, err := kindstore.Entities(ratings).Create(types.Fields{"app_id": "x"})
//
// Managers are cheap values; all state lives in the connection. Managers
// obtained from Entities resolve the default connection on every call, so
// they may be created before SetDefault runs.
package kindstore
