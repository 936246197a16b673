package domain

import (
	"testing"

	"flockcore/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not depend on internal packages")
}

func TestDomainHasNoStorageDrivers(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to go list")
	}
	testutil.AssertNoTransitiveDependency(t, ".", testutil.StorageDriverForbidden, "domain must stay driver free")
}
