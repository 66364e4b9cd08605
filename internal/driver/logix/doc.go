// Package logix drives Allen-Bradley Logix controllers (ControlLogix,
// CompactLogix and Micro800) over EtherNet/IP.
//
// Tag services, the symbol table and explicit CIP messaging go through
// github.com/danomagnum/gologix. The package adds what the service needs on
// top of it: typed writes for untyped JSON values, the controller wall
// clock object, identity objects and ListIdentity discovery.
//
// Open does no network I/O. The session connects on its first call and
// reconnects after a socket failure, so a "connect" request succeeds even
// when the controller is unreachable and the failure surfaces on the first
// driver call instead.
//
// The driver registers itself as "logix":
//
//	import _ "github.com/nerrad567/logix-service/internal/driver/logix"
package logix
