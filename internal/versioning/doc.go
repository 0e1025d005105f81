// Package versioning implementa el "version gate": la regla de control de
// concurrencia optimista que decide si una escritura sobre un documento
// versionado se acepta y qué versión resulta.
//
// El gate es una función pura: recibe el estado actual del registro y la
// solicitud, y devuelve la nueva versión o un *ConflictError. La atomicidad
// (leer estado + evaluar + persistir) es responsabilidad de cada adapter de
// storage.
//
//	internal      supplied == stored  -> stored + 1
//	external      supplied >  stored  -> supplied
//	(sin registro)                    -> 1 | supplied
package versioning
