// Package testutil provides a fake remote API for exercising generated
// clients end to end.
//
// Server is a gin engine behind an httptest.Server that records every
// request it receives:
//
//	srv := testutil.NewServer()
//	srv.Engine().GET("/users/:id", func(c *gin.Context) {
//		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
//	})
//	testutil.T(t).Setup(srv)
//
//	f, _ := apikit.New(apikit.Config{BaseURL: srv.BaseURL()})
//
// Server implements TestComponent, so it can be started and reset like
// any other component.
package testutil
