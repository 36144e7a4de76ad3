// Package exceptions classifies raw transport failures into a closed set
// of typed exceptions.
//
// Classification is advisory. The caller-facing Call always fails with the
// original error; the classified Exception is only handed to the client's
// error handler and consulted by the retry interceptor.
//
// Rules are evaluated in a fixed order and the first rule that produces an
// exception wins:
//
//  1. an error that already is an *Exception is returned unchanged
//  2. a nil reason yields no exception
//  3. no transport code and a caller-cancelled request: KindCancel
//  4. ECONNREFUSED: KindConnect
//  5. ECONNRESET: KindSocket
//  6. ECONNABORTED or ETIMEDOUT: KindTimeout
//  7. anything else: KindIO with the reason's message
//
// Additional rules registered with RegisterRule run after the built-in code
// rules and before the generic fallback. Registration must complete before
// any request is classified.
package exceptions
