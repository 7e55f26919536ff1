// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	original := GitDirty
	defer func() { GitDirty = original }()

	GitDirty = "false"
	if strings.Contains(Info(), "-dirty") {
		t.Errorf("clean build reported dirty: %s", Info())
	}
	GitDirty = "true"
	if !strings.Contains(Info(), GitCommit+"-dirty") {
		t.Errorf("dirty build not marked: %s", Info())
	}
	if !strings.HasPrefix(Full(), Info()) || !strings.Contains(Full(), "Go: ") {
		t.Errorf("unexpected Full: %s", Full())
	}
}

func TestUserAgent(t *testing.T) {
	if UserAgent() != "chotop/"+Short() {
		t.Errorf("UserAgent = %s", UserAgent())
	}
}
