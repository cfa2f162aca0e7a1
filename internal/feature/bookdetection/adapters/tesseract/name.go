package tesseract

// ProviderName はカスケード・ログで使うプロバイダー名です。
const ProviderName = "tesseract"
