// Package lifecycle pools transport handles per contract and recycles them
// on a timer.
//
// Each key has at most one Active handle. Once its lifetime has passed the
// next Acquire demotes it to Expired and creates a fresh one; callers that
// still hold a Lease on the old handle keep using it. A background sweep
// closes Expired handles whose lease count has dropped to zero and leaves
// the rest for the next round, so a slow call never blocks a swap.
//
//	m, _ := lifecycle.New(cfg, func(key string) (httpclient.Transport, error) {
//		return httpclient.NewHandle(handleCfg)
//	})
//	lease, err := m.Acquire("UserAPI")
//	defer lease.Release()
//	resp, err := lease.Transport().Send(ctx, req)
package lifecycle
