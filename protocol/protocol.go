package protocol

const (
	OK        = 0  // ok response
	ERROR     = 1  // error response
	HANDSHAKE = 2  // version selection
	GET       = 3  // read key
	SET       = 4  // write key
	DELETE    = 5  // delete key
	LEN       = 6  // count entries
	VERSION   = 7  // current generation
	BLOCK     = 8  // open block scope
	COMMIT    = 9  // commit block scope
	ROLLBACK  = 10 // roll back block scope
	BEGIN     = 11 // open transaction scope
	APPLY     = 12 // commit transaction scope
	DISCARD   = 13 // roll back transaction scope
	REVERT    = 14 // revert last committed block
	RANGE     = 15 // read key range
	STAT      = 16 // storage statistics
	DUMP      = 17 // export storage
	RESTORE   = 18 // import storage
)
