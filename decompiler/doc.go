// Package decompiler is the top-level entrypoint for the bytecode
// decompilation pipeline:
//
//	raw bytes / container
//	        |
//	        v
//	  bits.Slice  (cursor: payload bits + child refs)
//	        |
//	        v
//	 entry.Decompile  --matches method-dictionary prologue-->  per-method lift.Slice
//	        |                                                        |
//	        | (no match)                                             v
//	        v                                                  ir.Function (Multi)
//	  lift.Slice  <--- decode.One (isa.Catalog) --- stk.Stack (shuffle + guard)
//	        |
//	        v
//	 ir.Function / ir.Program (Single)
//	        |
//	        v
//	 passes.Default().RunProgram  (inline constants, inline single-use)
//	        |
//	        v
//	 render.Program  (adapter; not part of the core)
package decompiler
