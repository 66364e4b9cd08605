// Package simulated provides an in-memory Logix controller for development
// and tests.
//
// A Device holds controller state (tag values, the controller clock, the
// symbol table and the identity object) that survives across sessions, so a
// value written in one session can be read back after reconnecting. Each call
// to Device.Open returns a new Conn implementing driver.Driver.
//
// Seeded controller tags:
//
//	BaseBOOL     BOOL      false
//	BaseSINT     SINT      0
//	BaseINT      INT       0
//	BaseDINT     DINT      0
//	BaseLINT     LINT      0
//	BaseREAL     REAL      0.0
//	BaseSTRING   STRING    ""
//	BaseINTArray INT[10]   0..9
//
// plus Program:MainProgram.LocalDINT in the one program, Program:MainProgram.
package simulated
