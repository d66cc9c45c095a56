// Package cookie reads and writes plain, signed (HMAC-SHA256) and encrypted
// (AES-GCM) cookies, plus one-shot flash messages.
//
//	m := cookie.New(
//	    cookie.WithSecret(cfg.Cookie.Secret),
//	    cookie.WithPreviousSecrets(cfg.Cookie.PreviousSecrets...),
//	    cookie.WithSecure(true),
//	)
//
//	m.Set(w, "theme", "dark", 86400)
//	_ = m.SetSigned(w, "uid", "42", 0)
//	_ = m.SetEncrypted(w, "prefs", `{"lang":"en"}`, 0)
//	_ = m.SetFlash(w, "notice", "Profile saved")
//
// Secrets shorter than 32 bytes are ignored; signed and encrypted operations
// then fail with [ErrNoSecret]. The first secret signs and encrypts, and
// previous secrets keep verifying and decrypting existing cookies during a
// key rotation.
//
// [Manager.Encrypt] and [Manager.Decrypt] are exported for callers that keep
// state in an opaque token, such as the cookie session store.
package cookie
