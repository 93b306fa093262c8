package litefile

// lockByteOffset is the first byte of the range used for file locking. The page
// holding it never stores content.
const lockByteOffset = 1073741824

// LockBytePage returns the page containing the lock bytes for the given page size.
// Only databases larger than 1 GiB contain it.
func LockBytePage(pageSize PageSize) PageNumber {
	return PageNumber(lockByteOffset/uint32(pageSize) + 1)
}

// HasLockBytePage reports whether a database of pageCount pages reaches the lock-byte page.
func HasLockBytePage(pageSize PageSize, pageCount uint32) bool {
	return PageNumber(pageCount) >= LockBytePage(pageSize)
}
