package main

import "v.io/x/lib/vlog"

// configureLogging raises vlog's verbosity threshold so that
// vlog.VI(n) calls at or below level become visible. The datawelder
// binary's own vlog.Infof/Errorf calls are unaffected; this only
// gates V-leveled logging, which today is the partition verb's
// per-interval progress line (vlog.VI(1)).
func configureLogging(level int) error {
	if level <= 0 {
		return nil
	}
	return vlog.Log.Configure(vlog.Level(level))
}
