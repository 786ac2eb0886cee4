// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package interp

import "github.com/golang/glog"

// verboseFlag mirrors kati's katiLogFlag: a package-local switch that
// makes logf print regardless of glog's own -v level; without it logf
// prints only at -v=1 and above. The one logf call traces each command
// type emitCommand handles.
var verboseFlag bool

// SetVerbose toggles always-on interpreter logging (§6.2 Options.Verbose).
func SetVerbose(v bool) { verboseFlag = v }

func logf(format string, args ...interface{}) {
	if verboseFlag {
		glog.Infof(format, args...)
		return
	}
	if glog.V(1) {
		glog.Infof(format, args...)
	}
}

func warn(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}
